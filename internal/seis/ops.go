package seis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Detrend removes a least-squares linear trend from the trace in place.
func (tr *Trace) Detrend() {
	n := len(tr.Data)
	if n < 2 {
		return
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, tr.Data, nil, false)
	for i := range tr.Data {
		tr.Data[i] -= alpha + beta*float64(i)
	}
}

// Taper applies a cosine (Hann) taper in place over the given fraction of the
// trace length at each end. A fraction of 0.1 tapers the first and last 10%.
func (tr *Trace) Taper(fraction float64) {
	n := len(tr.Data)
	w := int(float64(n) * fraction)
	if w < 1 || n < 2 {
		return
	}
	for i := 0; i < w; i++ {
		f := 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(w)))
		tr.Data[i] *= f
		tr.Data[n-1-i] *= f
	}
}

// Stack averages the traces sample-wise, aligned on their onset times.
// The result covers the largest window common to all traces and carries the
// first trace's stats. Returns nil for an empty input.
func Stack(traces []*Trace) *Trace {
	if len(traces) == 0 {
		return nil
	}

	pre, post := math.MaxInt32, math.MaxInt32
	for _, tr := range traces {
		onsetIdx := tr.indexOf(tr.Stats.Onset)
		if onsetIdx < pre {
			pre = onsetIdx
		}
		if n := len(tr.Data) - onsetIdx; n < post {
			post = n
		}
	}
	if pre < 0 || post <= 0 {
		return nil
	}

	data := make([]float64, pre+post)
	for _, tr := range traces {
		onsetIdx := tr.indexOf(tr.Stats.Onset)
		for i := range data {
			data[i] += tr.Data[onsetIdx-pre+i]
		}
	}
	for i := range data {
		data[i] /= float64(len(traces))
	}

	first := traces[0]
	out := &Trace{Stats: first.Stats, Data: data}
	out.Stats.StartTime = first.Stats.Onset.Add(secs(-float64(pre) / first.Stats.SampleRate))
	return out
}

// biquad holds normalized second-order IIR filter coefficients.
type biquad struct {
	b0, b1, b2, a1, a2 float64
}

func lowpassCoeffs(freq, sampleRate float64) biquad {
	return rbjCoeffs(freq, sampleRate, false)
}

func highpassCoeffs(freq, sampleRate float64) biquad {
	return rbjCoeffs(freq, sampleRate, true)
}

// rbjCoeffs derives Butterworth-response biquad coefficients (Q = 1/sqrt 2)
// from the Audio EQ Cookbook formulas.
func rbjCoeffs(freq, sampleRate float64, highpass bool) biquad {
	w0 := 2 * math.Pi * freq / sampleRate
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2

	var b0, b1, b2 float64
	if highpass {
		b0 = (1 + cosw0) / 2
		b1 = -(1 + cosw0)
		b2 = (1 + cosw0) / 2
	} else {
		b0 = (1 - cosw0) / 2
		b1 = 1 - cosw0
		b2 = (1 - cosw0) / 2
	}
	a0 := 1 + alpha
	return biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: -2 * cosw0 / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f biquad) apply(data []float64) {
	var x1, x2, y1, y2 float64
	for i, x := range data {
		y := f.b0*x + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, x
		y2, y1 = y1, y
		data[i] = y
	}
}

// applyZeroPhase runs the filter forward and backward, cancelling phase
// distortion at the cost of doubled roll-off.
func (f biquad) applyZeroPhase(data []float64) {
	f.apply(data)
	reverse(data)
	f.apply(data)
	reverse(data)
}

func reverse(data []float64) {
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}
}

// Lowpass applies a zero-phase Butterworth low-pass filter in place.
func (tr *Trace) Lowpass(freq float64) {
	if len(tr.Data) == 0 || freq >= tr.Stats.SampleRate/2 {
		return
	}
	lowpassCoeffs(freq, tr.Stats.SampleRate).applyZeroPhase(tr.Data)
}

// Bandpass applies a zero-phase Butterworth band-pass filter in place as a
// high-pass/low-pass cascade.
func (tr *Trace) Bandpass(low, high float64) {
	if len(tr.Data) == 0 {
		return
	}
	if low > 0 {
		highpassCoeffs(low, tr.Stats.SampleRate).applyZeroPhase(tr.Data)
	}
	if high < tr.Stats.SampleRate/2 {
		lowpassCoeffs(high, tr.Stats.SampleRate).applyZeroPhase(tr.Data)
	}
}

// lanczosA is the Lanczos interpolation window half-width in samples.
const lanczosA = 10

// Resample returns a new trace interpolated to the given rate using Lanczos
// (windowed-sinc) interpolation. Callers are expected to low-pass filter
// below the new Nyquist frequency first when downsampling.
func (tr *Trace) Resample(rate float64) *Trace {
	if rate == tr.Stats.SampleRate || len(tr.Data) == 0 {
		return tr.Copy()
	}

	duration := float64(len(tr.Data)-1) / tr.Stats.SampleRate
	n := int(duration*rate) + 1
	data := make([]float64, n)
	ratio := tr.Stats.SampleRate / rate

	for i := range data {
		p := float64(i) * ratio
		k0 := int(math.Floor(p)) - lanczosA + 1
		k1 := int(math.Floor(p)) + lanczosA
		var sum, wsum float64
		for k := k0; k <= k1; k++ {
			if k < 0 || k >= len(tr.Data) {
				continue
			}
			w := lanczosKernel(p - float64(k))
			sum += tr.Data[k] * w
			wsum += w
		}
		if wsum != 0 {
			data[i] = sum / wsum
		}
	}

	out := &Trace{Stats: tr.Stats, Data: data}
	out.Stats.SampleRate = rate
	return out
}

func lanczosKernel(x float64) float64 {
	if x == 0 {
		return 1
	}
	if math.Abs(x) >= lanczosA {
		return 0
	}
	px := math.Pi * x
	return lanczosA * math.Sin(px) * math.Sin(px/lanczosA) / (px * px)
}
