package seis

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Stats carries the metadata attached to a single-component trace.
type Stats struct {
	Network     string
	Station     string
	Channel     string
	EventID     string
	BackAzimuth float64 // degrees clockwise from north, [0, 360)
	SampleRate  float64 // Hz
	StartTime   time.Time
	Onset       time.Time // expected primary-arrival time
}

// Trace is one component's evenly sampled time series plus its metadata.
type Trace struct {
	Stats Stats
	Data  []float64
}

// Component returns the trace's component letter, the last character of the
// channel code ("Z", "N", "E", "R", "T").
func (tr *Trace) Component() string {
	if tr.Stats.Channel == "" {
		return ""
	}
	return tr.Stats.Channel[len(tr.Stats.Channel)-1:]
}

// Copy returns a deep copy of the trace.
func (tr *Trace) Copy() *Trace {
	data := make([]float64, len(tr.Data))
	copy(data, tr.Data)
	return &Trace{Stats: tr.Stats, Data: data}
}

// Delta returns the sampling interval in seconds.
func (tr *Trace) Delta() float64 {
	return 1.0 / tr.Stats.SampleRate
}

// EndTime returns the time of the last sample.
func (tr *Trace) EndTime() time.Time {
	if len(tr.Data) == 0 {
		return tr.Stats.StartTime
	}
	return tr.timeAt(len(tr.Data) - 1)
}

func (tr *Trace) timeAt(i int) time.Time {
	return tr.Stats.StartTime.Add(time.Duration(float64(i) / tr.Stats.SampleRate * float64(time.Second)))
}

func (tr *Trace) indexOf(t time.Time) int {
	return int(math.Round(t.Sub(tr.Stats.StartTime).Seconds() * tr.Stats.SampleRate))
}

// TrimRelOnset returns a new trace restricted to [onset+start, onset+end]
// seconds. The window is clamped to the available samples.
func (tr *Trace) TrimRelOnset(start, end float64) *Trace {
	i0 := tr.indexOf(tr.Stats.Onset.Add(secs(start)))
	i1 := tr.indexOf(tr.Stats.Onset.Add(secs(end))) + 1
	if i0 < 0 {
		i0 = 0
	}
	if i1 > len(tr.Data) {
		i1 = len(tr.Data)
	}
	if i0 >= i1 {
		out := tr.Copy()
		out.Data = nil
		return out
	}

	data := make([]float64, i1-i0)
	copy(data, tr.Data[i0:i1])
	out := &Trace{Stats: tr.Stats, Data: data}
	out.Stats.StartTime = tr.timeAt(i0)
	return out
}

// Mean returns the arithmetic mean of the samples, or NaN for an empty trace.
func (tr *Trace) Mean() float64 {
	if len(tr.Data) == 0 {
		return math.NaN()
	}
	return floats.Sum(tr.Data) / float64(len(tr.Data))
}

// RMS returns the root-mean-square amplitude, or 0 for an empty trace.
func (tr *Trace) RMS() float64 {
	if len(tr.Data) == 0 {
		return 0
	}
	var ss float64
	for _, v := range tr.Data {
		ss += v * v
	}
	return math.Sqrt(ss / float64(len(tr.Data)))
}

// MaxAbs returns the largest absolute sample value.
func (tr *Trace) MaxAbs() float64 {
	var m float64
	for _, v := range tr.Data {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
