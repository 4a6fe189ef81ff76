// Package plot renders per-station diagnostic figures for the orientation
// analysis.
package plot

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/RichardScottOZ/hiperseis/internal/orient"
)

// Renderer writes one PNG per station into a directory. It implements
// orient.Plotter.
type Renderer struct {
	dir string
}

// NewRenderer creates the output directory if needed.
func NewRenderer(dir string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating plot directory: %w", err)
	}
	return &Renderer{dir: dir}, nil
}

// Save renders the sampled amplitude curve with the fitted cosine and the
// interpolating spline overlaid.
func (r *Renderer) Save(name string, fit *orient.FitResult, numEvents int) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s  N=%d", strings.TrimSuffix(name, ".png"), numEvents)
	p.X.Label.Text = "correction (deg)"
	p.Y.Label.Text = "stacked amplitude"

	samples := make(plotter.XYs, len(fit.SampleAngles))
	for i := range fit.SampleAngles {
		samples[i].X = fit.SampleAngles[i]
		samples[i].Y = fit.SampleAmplitudes[i]
	}
	scatter, err := plotter.NewScatter(samples)
	if err != nil {
		return fmt.Errorf("plotting samples: %w", err)
	}
	scatter.Radius = vg.Points(2.5)
	p.Add(scatter)
	p.Legend.Add("samples", scatter)

	cosine, err := dashedLine(fit.FineAngles, fit.CosineFit)
	if err != nil {
		return fmt.Errorf("plotting cosine fit: %w", err)
	}
	for _, l := range cosine {
		p.Add(l)
	}
	if len(cosine) > 0 {
		p.Legend.Add("cosine fit", cosine[0])
	}

	if fit.SplineFit != nil {
		spline, err := dashedLine(fit.FineAngles, fit.SplineFit)
		if err != nil {
			return fmt.Errorf("plotting spline: %w", err)
		}
		for _, l := range spline {
			l.LineStyle.Width = vg.Points(0.5)
			p.Add(l)
		}
		if len(spline) > 0 {
			p.Legend.Add("spline", spline[0])
		}
	}

	path := filepath.Join(r.dir, name)
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving figure: %w", err)
	}
	return nil
}

// dashedLine splits the curve at NaN gaps so undefined spans stay blank
// instead of being bridged.
func dashedLine(xs, ys []float64) ([]*plotter.Line, error) {
	var lines []*plotter.Line
	var run plotter.XYs

	flush := func() error {
		if len(run) < 2 {
			run = nil
			return nil
		}
		l, err := plotter.NewLine(run)
		if err != nil {
			return err
		}
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		lines = append(lines, l)
		run = nil
		return nil
	}

	for i := range xs {
		if math.IsNaN(ys[i]) {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		run = append(run, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return lines, nil
}
