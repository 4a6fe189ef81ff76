package orient

import (
	"context"
	"math"
	"sort"

	"github.com/RichardScottOZ/hiperseis/internal/rf"
	"github.com/RichardScottOZ/hiperseis/internal/seis"
)

// SweepEvaluator computes the arrival-strength metric for a station's event
// collection under one trial back-azimuth correction.
type SweepEvaluator struct {
	transformer rf.Transformer
}

// NewSweepEvaluator creates an evaluator backed by the given receiver-function
// transformer.
func NewSweepEvaluator(transformer rf.Transformer) *SweepEvaluator {
	return &SweepEvaluator{transformer: transformer}
}

// Evaluate applies the candidate correction to an independent copy of every
// event stream, recomputes receiver functions, and reduces the aggregate to
// one scalar: the mean radial amplitude of the stacked arrival in the one
// second around onset. It also reports the number of events that contributed
// a receiver function. An empty aggregate yields NaN, meaning no usable data
// at this angle. The caller's collection is never mutated.
func (e *SweepEvaluator) Evaluate(events seis.StationEvents, correction float64) (float64, int) {
	var aggregate []*seis.Trace
	contributed := 0

	for _, id := range sortedEventIDs(events) {
		st := events[id].Copy()
		st.SetBackAzimuth(WrapAzimuth(st.BackAzimuth() + correction))

		rfStream := e.transformer.Transform(id, st)
		if rfStream == nil {
			continue
		}
		contributed++
		aggregate = append(aggregate, rfStream...)
	}

	if len(aggregate) == 0 {
		return math.NaN(), contributed
	}

	// Radial component, narrow arrival window, conditioned and stacked.
	var radial []*seis.Trace
	for _, tr := range seis.Stream(aggregate).Select("R") {
		tr = tr.TrimRelOnset(-5, 5)
		tr.Detrend()
		tr.Taper(0.1)
		radial = append(radial, tr)
	}

	stacked := seis.Stack(radial)
	if stacked == nil {
		return math.NaN(), contributed
	}
	return stacked.TrimRelOnset(-1, 1).Mean(), contributed
}

// StationCurve runs the evaluator over the full candidate-angle grid,
// producing the station's amplitude curve in angle order plus the number of
// events that contributed to at least one angle.
func (e *SweepEvaluator) StationCurve(ctx context.Context, events seis.StationEvents, angles []float64) (*AmplitudeCurve, int, error) {
	ampls := make([]float64, len(angles))
	contributing := 0

	for i, angle := range angles {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		ampl, n := e.Evaluate(events, angle)
		ampls[i] = ampl
		if n > contributing {
			contributing = n
		}
	}

	curve, err := NewAmplitudeCurve(angles, ampls)
	if err != nil {
		return nil, 0, err
	}
	return curve, contributing, nil
}

func sortedEventIDs(events seis.StationEvents) []string {
	ids := make([]string, 0, len(events))
	for id := range events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
