package orient

import (
	"fmt"
	"math"
)

// NumCandidateAngles is the size of the trial correction-angle grid.
const NumCandidateAngles = 20

// CandidateAngles returns the ordered trial correction angles: an even grid
// over [-180, 180), exclusive of the endpoint.
func CandidateAngles() []float64 {
	angles := make([]float64, NumCandidateAngles)
	step := 360.0 / NumCandidateAngles
	for i := range angles {
		angles[i] = -180 + float64(i)*step
	}
	return angles
}

// WrapAzimuth wraps an angle into [0, 360) by repeated adjustment.
func WrapAzimuth(a float64) float64 {
	for a < 0 {
		a += 360
	}
	for a >= 360 {
		a -= 360
	}
	return a
}

// AmplitudeCurve is one station's arrival-strength metric per candidate
// angle, closed over the full circle: index Len() reads as the first sample
// duplicated at +360°, so the wrap value can never diverge from the value it
// duplicates. An undefined amplitude is NaN, meaning no usable data at that
// angle rather than an error.
type AmplitudeCurve struct {
	angles []float64
	ampls  []float64
}

// NewAmplitudeCurve builds a curve from parallel angle and amplitude slices.
func NewAmplitudeCurve(angles, ampls []float64) (*AmplitudeCurve, error) {
	if len(angles) != len(ampls) {
		return nil, fmt.Errorf("angle/amplitude length mismatch: %d != %d", len(angles), len(ampls))
	}
	if len(angles) == 0 {
		return nil, fmt.Errorf("empty amplitude curve")
	}
	return &AmplitudeCurve{
		angles: append([]float64(nil), angles...),
		ampls:  append([]float64(nil), ampls...),
	}, nil
}

// Len returns the number of distinct samples, excluding the wrap point.
func (c *AmplitudeCurve) Len() int { return len(c.angles) }

// WrappedLen returns the sample count including the closing wrap point.
func (c *AmplitudeCurve) WrappedLen() int { return len(c.angles) + 1 }

// Angle returns the i-th angle; index Len() is the wrap point at
// angle[0] + 360.
func (c *AmplitudeCurve) Angle(i int) float64 {
	if i == len(c.angles) {
		return c.angles[0] + 360
	}
	return c.angles[i]
}

// Amplitude returns the i-th amplitude; index Len() structurally returns the
// first sample.
func (c *AmplitudeCurve) Amplitude(i int) float64 {
	if i == len(c.angles) {
		return c.ampls[0]
	}
	return c.ampls[i]
}

// Valid reports whether the i-th sample (wrap point included) is a finite
// number.
func (c *AmplitudeCurve) Valid(i int) bool {
	v := c.Amplitude(i)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidCount returns the number of valid samples over the closed curve,
// wrap point included.
func (c *AmplitudeCurve) ValidCount() int {
	n := 0
	for i := 0; i < c.WrappedLen(); i++ {
		if c.Valid(i) {
			n++
		}
	}
	return n
}

// ValidPoints returns the angles and amplitudes of the valid samples over
// the closed curve, in angle order.
func (c *AmplitudeCurve) ValidPoints() (xs, ys []float64) {
	for i := 0; i < c.WrappedLen(); i++ {
		if c.Valid(i) {
			xs = append(xs, c.Angle(i))
			ys = append(ys, c.Amplitude(i))
		}
	}
	return xs, ys
}
