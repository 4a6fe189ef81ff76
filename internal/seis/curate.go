package seis

import (
	"log/slog"

	"github.com/RichardScottOZ/hiperseis/internal/config"
)

// Curate returns a snapshot containing only the event streams that pass the
// given quality criteria. Discarded events are logged at debug level; the
// caller is expected to report aggregate counts.
//
// The criteria deliberately avoid anything sensitive to a sensor orientation
// error: SNR and raw amplitude are taken from the vertical component, and the
// RMS ratio bounds compare total horizontal energy against vertical, which is
// invariant under horizontal rotation.
func Curate(ds *NetworkEventDataset, opts config.Curation, logger *slog.Logger) *NetworkEventDataset {
	return ds.transform(func(st Stream) Stream {
		if reason := curationFailure(st, opts); reason != "" {
			tr := st.First()
			if tr != nil {
				logger.Debug("discarding event",
					"station", tr.Stats.Station,
					"event", tr.Stats.EventID,
					"reason", reason,
				)
			}
			return nil
		}
		return st
	})
}

func curationFailure(st Stream, opts config.Curation) string {
	vertical := st.Select("Z").First()
	if vertical == nil {
		return "no vertical component"
	}
	if len(st) < 3 {
		return "incomplete components"
	}

	for _, tr := range st {
		if opts.MaxRawAmplitude > 0 && tr.MaxAbs() > opts.MaxRawAmplitude {
			return "raw amplitude bound exceeded"
		}
	}

	if opts.MinSNR > 0 && verticalSNR(vertical) < opts.MinSNR {
		return "below SNR threshold"
	}

	// Horizontal/vertical RMS ratio bounds. The bounds are keyed by the
	// rotated component names but are evaluated on the unrotated horizontals,
	// whose combined energy the rotation preserves.
	horizontals := append(append(Stream{}, st.Select("N")...), st.Select("R")...)
	horizontals = append(append(horizontals, st.Select("E")...), st.Select("T")...)
	zRMS := vertical.RMS()
	if zRMS > 0 {
		bounds := []float64{opts.RMSAmplitudeBounds["R/Z"], opts.RMSAmplitudeBounds["T/Z"]}
		for i, tr := range horizontals {
			if i >= len(bounds) || bounds[i] <= 0 {
				break
			}
			if tr.RMS()/zRMS > bounds[i] {
				return "horizontal/vertical RMS bound exceeded"
			}
		}
	}

	return ""
}

// verticalSNR compares RMS amplitude in the ten seconds following onset
// against the pre-onset noise window, leaving a one second guard interval.
func verticalSNR(tr *Trace) float64 {
	signal := tr.TrimRelOnset(0, 10).RMS()
	noise := tr.TrimRelOnset(-10, -1).RMS()
	if noise == 0 {
		return 0
	}
	return signal / noise
}
