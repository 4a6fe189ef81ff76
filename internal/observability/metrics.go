package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// orientation-analysis and catalogue-conversion pipelines.
type Metrics struct {
	EventsCurated    prometheus.Counter
	EventsDiscarded  prometheus.Counter
	TransformMisses  prometheus.Counter
	StationsAnalyzed prometheus.Counter
	StationsSkipped  prometheus.Counter
	AnalysisRunning  prometheus.Gauge

	// Per-station sweep metrics.
	StationEventCount    prometheus.Histogram
	StationSweepDuration prometheus.Histogram

	// Catalogue conversion metrics.
	RecordsConverted prometheus.Counter
	ConvertErrors    prometheus.Counter
	RecordsPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsCurated,
		m.EventsDiscarded,
		m.TransformMisses,
		m.StationsAnalyzed,
		m.StationsSkipped,
		m.AnalysisRunning,
		m.StationEventCount,
		m.StationSweepDuration,
		m.RecordsConverted,
		m.ConvertErrors,
		m.RecordsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsCurated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seis",
			Name:      "events_curated_total",
			Help:      "Total event waveforms retained after curation.",
		}),
		EventsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seis",
			Name:      "events_discarded_total",
			Help:      "Total event waveforms discarded by curation.",
		}),
		TransformMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seis",
			Name:      "rf_transform_misses_total",
			Help:      "Events for which the receiver-function transform yielded no result.",
		}),
		StationsAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seis",
			Name:      "stations_analyzed_total",
			Help:      "Stations for which an orientation estimate was produced.",
		}),
		StationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seis",
			Name:      "stations_skipped_total",
			Help:      "Stations skipped due to insufficient valid amplitude samples.",
		}),
		AnalysisRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seis",
			Name:      "analysis_running",
			Help:      "1 while the orientation analysis batch is active.",
		}),
		StationEventCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seis",
			Name:      "station_event_count",
			Help:      "Number of curated events per analyzed station.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		StationSweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seis",
			Name:      "station_sweep_duration_seconds",
			Help:      "Duration of a full candidate-angle sweep for one station.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		RecordsConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seis",
			Name:      "catalogue_records_converted_total",
			Help:      "Catalogue records converted to the interchange format.",
		}),
		ConvertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seis",
			Name:      "catalogue_convert_errors_total",
			Help:      "Catalogue records that failed conversion.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seis",
			Name:      "catalogue_records_published_total",
			Help:      "Interchange records published to the sink topic.",
		}),
	}
}
