package orient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/RichardScottOZ/hiperseis/internal/config"
	"github.com/RichardScottOZ/hiperseis/internal/observability"
	"github.com/RichardScottOZ/hiperseis/internal/rf"
	"github.com/RichardScottOZ/hiperseis/internal/seis"
)

// preprocessSampleRate is the rate waveforms are downsampled to before
// curation and the angle sweep. The sweep recomputes receiver functions
// hundreds of times per station, so the reduction dominates run time.
const preprocessSampleRate = 20.0

// DateRange is the span of event origin times a station contributed data
// for, measured before any trimming. It serialises as a two element
// [start, end] array of ISO 8601 timestamps.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{
		r.Start.UTC().Format(time.RFC3339),
		r.End.UTC().Format(time.RFC3339),
	})
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	start, err := time.Parse(time.RFC3339, pair[0])
	if err != nil {
		return fmt.Errorf("date range start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, pair[1])
	if err != nil {
		return fmt.Errorf("date range end: %w", err)
	}
	r.Start, r.End = start, end
	return nil
}

// Estimate is one station's orientation result.
type Estimate struct {
	DateRange         DateRange `json:"date_range"`
	AzimuthCorrection float64   `json:"azimuth_correction"`
	UncertaintyDeg    *float64  `json:"uncertainty_deg,omitempty"`
	NumEvents         int       `json:"num_events"`
	AnalyzedAt        time.Time `json:"analyzed_at"`
}

// Results maps "NET.STA" station codes to orientation estimates.
type Results map[string]Estimate

// WriteFile writes the results as indented JSON.
func (r Results) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

// Plotter renders a per-station diagnostic figure. Implementations decide
// the output medium; name is the target file name without a directory.
type Plotter interface {
	Save(name string, fit *FitResult, numEvents int) error
}

// Analyzer runs the orientation analysis over a network dataset: curate,
// sweep every station across the candidate angles in parallel, fit the
// resulting amplitude curves.
type Analyzer struct {
	opts        config.AnalysisOptions
	transformer rf.Transformer
	workers     int
	logger      *slog.Logger
	metrics     *observability.Metrics
	plotter     Plotter
}

// NewAnalyzer creates an analyzer. A nil plotter disables figures.
func NewAnalyzer(opts config.AnalysisOptions, transformer rf.Transformer, workers int, logger *slog.Logger, metrics *observability.Metrics, plotter Plotter) *Analyzer {
	if workers < 1 {
		workers = 1
	}
	return &Analyzer{
		opts:        opts,
		transformer: transformer,
		workers:     workers,
		logger:      logger,
		metrics:     metrics,
		plotter:     plotter,
	}
}

// Run analyses every station in the dataset and returns the estimates.
// Stations with too few usable events are logged and left out of the
// results. Any other per-station failure fails the whole run. An empty
// dataset is not an error and yields empty results.
func (a *Analyzer) Run(ctx context.Context, ds *seis.NetworkEventDataset) (Results, error) {
	a.metrics.AnalysisRunning.Set(1)
	defer a.metrics.AnalysisRunning.Set(0)

	results := make(Results)
	if ds.Len() == 0 {
		a.logger.Warn("no events in dataset, nothing to analyse", "network", ds.Network)
		return results, nil
	}

	// Date ranges come from the raw waveforms, before trimming shortens
	// them.
	ranges := make(map[string]DateRange)
	for _, sta := range ds.Stations() {
		start, end := ds.DateRange(sta)
		ranges[sta] = DateRange{Start: start, End: end}
	}

	prepared := a.prepare(ds)

	stations := prepared.Stations()
	evaluator := NewSweepEvaluator(a.transformer)
	angles := CandidateAngles()

	jobs := make([]StationJob, len(stations))
	for i, sta := range stations {
		events := prepared.Station(sta)
		jobs[i] = StationJob{
			Station: sta,
			Run: func(ctx context.Context) (*AmplitudeCurve, int, error) {
				started := clock.Now()
				curve, contributing, err := evaluator.StationCurve(ctx, events, angles)
				a.metrics.StationSweepDuration.Observe(clock.Since(started).Seconds())
				return curve, contributing, err
			},
		}
	}

	a.logger.Info("starting angle sweep",
		"network", ds.Network,
		"stations", len(stations),
		"angles", len(angles),
		"workers", a.workers)

	sweeps, err := Dispatch(ctx, jobs, a.workers)
	if err != nil {
		return nil, fmt.Errorf("angle sweep: %w", err)
	}

	for _, sweep := range sweeps {
		code := ds.Network + "." + sweep.Station
		a.metrics.StationEventCount.Observe(float64(sweep.Contributing))
		misses := len(prepared.EventIDs(sweep.Station)) - sweep.Contributing
		if misses > 0 {
			a.metrics.TransformMisses.Add(float64(misses))
		}

		fit, err := FitCurve(sweep.Curve)
		if errors.Is(err, ErrInsufficientData) {
			a.metrics.StationsSkipped.Inc()
			a.logger.Warn("skipping station, not enough usable data",
				"station", code, "reason", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("station %s: %w", code, err)
		}

		est := Estimate{
			DateRange:         ranges[sweep.Station],
			AzimuthCorrection: fit.Correction,
			NumEvents:         sweep.Contributing,
			AnalyzedAt:        clock.Now().UTC(),
		}
		if !math.IsNaN(fit.PhaseStdDev) {
			u := fit.PhaseStdDev
			est.UncertaintyDeg = &u
		}
		results[code] = est
		a.metrics.StationsAnalyzed.Inc()
		a.logger.Info("station analysed",
			"station", code,
			"correction", fit.Correction,
			"uncertainty", fit.PhaseStdDev,
			"events", sweep.Contributing)

		if a.plotter != nil {
			name := fmt.Sprintf("%s_%s_ori.png", code, a.opts.Processing.DeconvDomain)
			if err := a.plotter.Save(name, fit, sweep.Contributing); err != nil {
				a.logger.Warn("plot failed", "station", code, "error", err)
			}
		}
	}

	return results, nil
}

// prepare trims the waveforms to the analysis window, downsamples, and
// curates out unusable events.
func (a *Analyzer) prepare(ds *seis.NetworkEventDataset) *seis.NetworkEventDataset {
	before := ds.Len()
	out := ds.TrimWindow(a.opts.Processing.TrimStartTime, a.opts.Processing.TrimEndTime)
	a.logger.Info("waveforms trimmed",
		"start", a.opts.Processing.TrimStartTime,
		"end", a.opts.Processing.TrimEndTime)
	out = out.Downsample(preprocessSampleRate)
	a.logger.Info("waveforms downsampled", "sample_rate", preprocessSampleRate)
	out = seis.Curate(out, a.opts.Curation, a.logger)

	kept := out.Len()
	a.metrics.EventsCurated.Add(float64(kept))
	if dropped := before - kept; dropped > 0 {
		a.metrics.EventsDiscarded.Add(float64(dropped))
	}
	a.logger.Info("dataset prepared", "network", ds.Network, "events", kept, "discarded", before-kept)
	return out
}
