package orient

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// MinValidSamples is the smallest number of finite samples on the closed
// amplitude curve for which a fit is attempted.
const MinValidSamples = 5

// ErrInsufficientData marks a station whose amplitude curve has too few
// finite samples to fit. Callers skip the station rather than failing the
// batch.
var ErrInsufficientData = errors.New("too few valid amplitude samples")

const (
	maxFitAmplitude = 1.0
	maxFitPhase     = 180.0
	fineGridStep    = 1.0
)

// FitResult holds the fitted cosine model and the derived orientation
// correction, plus the sampled and modelled curves used for diagnostics.
type FitResult struct {
	// Amplitude and Phase are the fitted cosine parameters in
	// A*cos(x + Phase), with x and Phase in degrees.
	Amplitude float64
	Phase     float64

	// Correction is the back-azimuth correction in degrees: the angle in
	// [-180, 180] at which the fitted cosine peaks, at 1 degree resolution.
	Correction float64

	// PhaseStdDev is the one-sigma uncertainty of the fitted phase, in
	// degrees. NaN when the covariance could not be estimated.
	PhaseStdDev float64

	// SampleAngles and SampleAmplitudes are the finite samples of the
	// closed curve that the fit used.
	SampleAngles     []float64
	SampleAmplitudes []float64

	// FineAngles spans [-180, 180] at 1 degree. CosineFit is the fitted
	// model on that grid. SplineFit is an interpolating cubic spline
	// through the samples, for visual comparison only; it is periodic
	// when the wrap sample is finite and natural otherwise, and nil when
	// the spline could not be built.
	FineAngles []float64
	CosineFit  []float64
	SplineFit  []float64

	// PeriodicSpline reports which boundary condition SplineFit used.
	PeriodicSpline bool
}

// FitCurve fits A*cos(x + ph) to the finite samples of the closed amplitude
// curve and derives the station's orientation correction from the fitted
// peak. It returns ErrInsufficientData when fewer than MinValidSamples
// samples are finite; any other error means the fit itself failed.
func FitCurve(curve *AmplitudeCurve) (*FitResult, error) {
	xs, ys := curve.ValidPoints()
	if len(xs) < MinValidSamples {
		return nil, fmt.Errorf("%w: %d of %d", ErrInsufficientData, len(xs), curve.WrappedLen())
	}

	ampl, phase, err := fitCosine(xs, ys)
	if err != nil {
		return nil, err
	}

	res := &FitResult{
		Amplitude:        ampl,
		Phase:            phase,
		PhaseStdDev:      phaseStdDev(xs, ys, ampl, phase),
		SampleAngles:     xs,
		SampleAmplitudes: ys,
		FineAngles:       fineGrid(),
		PeriodicSpline:   curve.Valid(curve.Len()),
	}

	res.CosineFit = make([]float64, len(res.FineAngles))
	best := 0
	for i, x := range res.FineAngles {
		res.CosineFit[i] = cosineModel(x, ampl, phase)
		if res.CosineFit[i] > res.CosineFit[best] {
			best = i
		}
	}
	res.Correction = res.FineAngles[best]

	res.SplineFit = splineFit(xs, ys, res.FineAngles, res.PeriodicSpline)
	return res, nil
}

func cosineModel(x, ampl, phase float64) float64 {
	return ampl * math.Cos((x+phase)*math.Pi/180)
}

// fitCosine minimises the sum of squared residuals over (amplitude, phase)
// with amplitude limited to [-1, 1] and phase to [-180, 180].
func fitCosine(xs, ys []float64) (ampl, phase float64, err error) {
	objective := func(p []float64) float64 {
		a, ph, penalty := clampParams(p)
		sse := 0.0
		for i, x := range xs {
			r := ys[i] - cosineModel(x, a, ph)
			sse += r * r
		}
		return sse + penalty
	}

	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, []float64{0.2, 0}, nil, &optimize.NelderMead{})
	if err != nil {
		return 0, 0, fmt.Errorf("cosine fit: %w", err)
	}
	if err := result.Status.Err(); err != nil {
		return 0, 0, fmt.Errorf("cosine fit: %w", err)
	}

	ampl, phase, _ = clampParams(result.X)
	return ampl, phase, nil
}

// clampParams bounds the raw optimiser parameters and returns a quadratic
// penalty proportional to the excursion, steering the search back into the
// feasible box.
func clampParams(p []float64) (ampl, phase, penalty float64) {
	ampl, phase = p[0], p[1]
	if ampl > maxFitAmplitude {
		penalty += (ampl - maxFitAmplitude) * (ampl - maxFitAmplitude)
		ampl = maxFitAmplitude
	} else if ampl < -maxFitAmplitude {
		penalty += (ampl + maxFitAmplitude) * (ampl + maxFitAmplitude)
		ampl = -maxFitAmplitude
	}
	if phase > maxFitPhase {
		penalty += (phase - maxFitPhase) * (phase - maxFitPhase)
		phase = maxFitPhase
	} else if phase < -maxFitPhase {
		penalty += (phase + maxFitPhase) * (phase + maxFitPhase)
		phase = -maxFitPhase
	}
	return ampl, phase, penalty
}

// phaseStdDev estimates the one-sigma uncertainty of the fitted phase from
// the Gauss-Newton approximation of the parameter covariance at the optimum.
func phaseStdDev(xs, ys []float64, ampl, phase float64) float64 {
	m := len(xs)
	if m <= 2 {
		return math.NaN()
	}

	sse := 0.0
	jac := mat.NewDense(m, 2, nil)
	for i, x := range xs {
		r := ys[i] - cosineModel(x, ampl, phase)
		sse += r * r
		rad := (x + phase) * math.Pi / 180
		jac.Set(i, 0, math.Cos(rad))
		jac.Set(i, 1, -ampl*math.Sin(rad)*math.Pi/180)
	}

	var jtj mat.SymDense
	jtj.SymOuterK(1, jac.T())

	var cov mat.SymDense
	var chol mat.Cholesky
	if !chol.Factorize(&jtj) {
		return math.NaN()
	}
	if err := chol.InverseTo(&cov); err != nil {
		return math.NaN()
	}

	sigma2 := sse / float64(m-2)
	return math.Sqrt(sigma2 * cov.At(1, 1))
}

func fineGrid() []float64 {
	n := int(360/fineGridStep) + 1
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = -180 + float64(i)*fineGridStep
	}
	return grid
}

// splineFit interpolates the samples on the fine grid. Outside the sample
// span the result is NaN. A nil return means the spline could not be built.
func splineFit(xs, ys, grid []float64, periodic bool) []float64 {
	eval := func(float64) float64 { return math.NaN() }
	if periodic {
		sp, err := newPeriodicSpline(xs, ys)
		if err != nil {
			return nil
		}
		eval = sp.at
	} else {
		var nc interp.NaturalCubic
		if err := nc.Fit(xs, ys); err != nil {
			return nil
		}
		eval = nc.Predict
	}

	out := make([]float64, len(grid))
	for i, x := range grid {
		if x < xs[0] || x > xs[len(xs)-1] {
			out[i] = math.NaN()
			continue
		}
		out[i] = eval(x)
	}
	return out
}

// periodicSpline is a cubic spline whose first and second derivatives match
// at the two ends of the sample span, suiting a curve that closes over the
// full circle. The last sample must repeat the first.
type periodicSpline struct {
	xs, ys []float64
	m2     []float64 // second derivatives at the knots
}

func newPeriodicSpline(xs, ys []float64) (*periodicSpline, error) {
	n := len(xs) - 1 // distinct knots; xs[n] duplicates xs[0]+period
	if n < 3 {
		return nil, fmt.Errorf("periodic spline needs at least 3 distinct knots, got %d", n)
	}
	if ys[0] != ys[n] {
		return nil, fmt.Errorf("periodic spline endpoints differ: %v != %v", ys[0], ys[n])
	}

	h := make([]float64, n)
	for i := 0; i < n; i++ {
		h[i] = xs[i+1] - xs[i]
		if h[i] <= 0 {
			return nil, fmt.Errorf("knots not strictly increasing at %d", i)
		}
	}

	// Cyclic tridiagonal system in the knot second derivatives.
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		prev := (i - 1 + n) % n
		next := (i + 1) % n
		a.Set(i, prev, a.At(i, prev)+h[prev]/6)
		a.Set(i, i, a.At(i, i)+(h[prev]+h[i])/3)
		a.Set(i, next, a.At(i, next)+h[i]/6)
		b.SetVec(i, (ys[i+1]-ys[i])/h[i]-(ys[i]-ys[prev])/h[prev])
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("periodic spline: %w", err)
	}

	m2 := make([]float64, n+1)
	for i := 0; i < n; i++ {
		m2[i] = sol.AtVec(i)
	}
	m2[n] = m2[0]

	return &periodicSpline{xs: xs, ys: ys, m2: m2}, nil
}

func (sp *periodicSpline) at(x float64) float64 {
	n := len(sp.xs) - 1
	i := 0
	for i < n-1 && x > sp.xs[i+1] {
		i++
	}
	h := sp.xs[i+1] - sp.xs[i]
	t := sp.xs[i+1] - x
	u := x - sp.xs[i]
	return sp.m2[i]*t*t*t/(6*h) + sp.m2[i+1]*u*u*u/(6*h) +
		(sp.ys[i]/h-sp.m2[i]*h/6)*t + (sp.ys[i+1]/h-sp.m2[i+1]*h/6)*u
}
