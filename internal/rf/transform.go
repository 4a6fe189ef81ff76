// Package rf computes receiver functions from three-component event
// waveforms: deconvolving the vertical component from the rotated horizontals
// to isolate the near-receiver structural response.
package rf

import (
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/RichardScottOZ/hiperseis/internal/config"
	"github.com/RichardScottOZ/hiperseis/internal/seis"
)

// Transformer computes the receiver function for one event's waveform stream.
// A nil result means the transform could not produce a usable receiver
// function for this event; that is an expected per-event outcome, not an error.
type Transformer interface {
	Transform(eventID string, st seis.Stream) seis.Stream
}

// ProcessingTransformer is the production Transformer: resample, taper,
// band-pass, rotate ZNE to ZRT by back-azimuth, and deconvolve the rotated
// horizontals by the vertical via regularized spectral division.
type ProcessingTransformer struct {
	filtering  config.Filtering
	processing config.Processing
}

// NewProcessingTransformer creates a transformer with the given option groups.
func NewProcessingTransformer(filtering config.Filtering, processing config.Processing) *ProcessingTransformer {
	return &ProcessingTransformer{filtering: filtering, processing: processing}
}

// Transform implements Transformer.
func (t *ProcessingTransformer) Transform(_ string, st seis.Stream) seis.Stream {
	if t.processing.RotationType != "ZRT" {
		return nil
	}

	z := st.Select("Z").First()
	n := st.Select("N").First()
	e := st.Select("E").First()
	if z == nil || n == nil || e == nil {
		return nil
	}

	z, n, e = t.condition(z), t.condition(n), t.condition(e)
	if len(z.Data) == 0 {
		return nil
	}

	r, tt := rotateNE(n, e, z.Stats.BackAzimuth)

	rfZ, ok := t.deconvolve(z, z)
	if !ok {
		return nil
	}
	rfR, _ := t.deconvolve(r, z)
	rfT, _ := t.deconvolve(tt, z)

	if t.processing.Normalize {
		peak := rfZ.MaxAbs()
		if peak == 0 {
			return nil
		}
		for _, tr := range []*seis.Trace{rfZ, rfR, rfT} {
			for i := range tr.Data {
				tr.Data[i] /= peak
			}
		}
	}

	out := seis.Stream{}
	for _, tr := range []*seis.Trace{rfZ, rfR, rfT} {
		trimmed := tr.TrimRelOnset(t.processing.TrimStartTime, t.processing.TrimEndTime)
		if len(trimmed.Data) == 0 || hasNaN(trimmed.Data) {
			return nil
		}
		out = append(out, trimmed)
	}
	return out
}

// condition resamples, tapers, and band-pass filters a copy of the trace.
func (t *ProcessingTransformer) condition(tr *seis.Trace) *seis.Trace {
	out := tr.Copy()
	if t.filtering.ResampleRate > 0 && t.filtering.ResampleRate != out.Stats.SampleRate {
		if t.filtering.ResampleRate < out.Stats.SampleRate {
			out.Lowpass(t.filtering.ResampleRate / 2)
		}
		out = out.Resample(t.filtering.ResampleRate)
	}
	out.Taper(t.filtering.TaperLimit)
	out.Bandpass(t.filtering.FilterBand[0], t.filtering.FilterBand[1])
	return out
}

// rotateNE rotates north/east components to radial/transverse for the given
// back-azimuth (degrees): R = -E sin(baz) - N cos(baz),
// T = -E cos(baz) + N sin(baz).
func rotateNE(n, e *seis.Trace, bazDeg float64) (r, t *seis.Trace) {
	baz := bazDeg * math.Pi / 180
	sin, cos := math.Sin(baz), math.Cos(baz)

	r, t = n.Copy(), e.Copy()
	r.Stats.Channel = replaceComponent(n.Stats.Channel, "R")
	t.Stats.Channel = replaceComponent(e.Stats.Channel, "T")

	m := min(len(n.Data), len(e.Data))
	r.Data = r.Data[:m]
	t.Data = t.Data[:m]
	for i := 0; i < m; i++ {
		nv, ev := n.Data[i], e.Data[i]
		r.Data[i] = -ev*sin - nv*cos
		t.Data[i] = -ev*cos + nv*sin
	}
	return r, t
}

func replaceComponent(channel, c string) string {
	if channel == "" {
		return c
	}
	return channel[:len(channel)-1] + c
}

// deconvolve computes the receiver function num/den by spectral division.
// The spiking parameter sets the regularization strength relative to the
// denominator's peak power: Tikhonov damping for the time domain
// configuration, water level for the frequency domain one. Zero-lag is
// shifted to the onset position so the result trims like any other trace.
func (t *ProcessingTransformer) deconvolve(num, den *seis.Trace) (*seis.Trace, bool) {
	n := min(len(num.Data), len(den.Data))
	if n < 2 {
		return nil, false
	}

	fft := fourier.NewFFT(n)
	numC := fft.Coefficients(nil, num.Data[:n])
	denC := fft.Coefficients(nil, den.Data[:n])

	maxPow := 0.0
	for _, c := range denC {
		if p := real(c)*real(c) + imag(c)*imag(c); p > maxPow {
			maxPow = p
		}
	}
	if maxPow == 0 {
		return nil, false
	}

	reg := t.processing.Spiking * 0.01 * maxPow
	out := make([]complex128, len(denC))
	for i := range denC {
		pow := real(denC[i])*real(denC[i]) + imag(denC[i])*imag(denC[i])
		var denom float64
		if t.processing.DeconvDomain == "freq" {
			denom = math.Max(pow, reg) // water level
		} else {
			denom = pow + reg // damped spiking deconvolution
		}
		out[i] = numC[i] * cmplx.Conj(denC[i]) / complex(denom, 0)
	}

	data := fft.Sequence(nil, out)
	scale := 1.0 / float64(n)
	for i := range data {
		data[i] *= scale
	}

	// Rotate the zero-lag sample to where the onset sits in the trace window.
	shift := int(math.Round(-t.processing.TrimStartTime * num.Stats.SampleRate))
	shift = ((shift % n) + n) % n
	shifted := make([]float64, n)
	for i := range data {
		shifted[(i+shift)%n] = data[i]
	}

	rf := &seis.Trace{Stats: num.Stats, Data: shifted}
	rf.Stats.StartTime = rf.Stats.Onset.Add(time.Duration(-float64(shift) / num.Stats.SampleRate * float64(time.Second)))
	return rf, true
}

func hasNaN(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
