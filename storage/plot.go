package storage

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot renders every power_* column against the first column as a PNG (or
// any image type gonum/plot infers from the file extension).
type Plot struct {
	Path  string
	Title string
}

// Write implements Storage. Edges and metadata only feed the title.
func (p *Plot) Write(_ []float64, cols []string, data [][]float64, meta Meta) error {
	if _, err := checkShape(cols, data); err != nil {
		return err
	}

	pl := plot.New()
	pl.Title.Text = p.title(meta)
	pl.X.Label.Text = cols[0]
	pl.Y.Label.Text = "P(k)"
	pl.Add(plotter.NewGrid())

	series := 0
	for i := 1; i < len(cols); i++ {
		if !strings.HasPrefix(cols[i], "power") {
			continue
		}
		pts := make(plotter.XYs, 0, len(data[0]))
		for r, x := range data[0] {
			y := data[i][r]
			if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(y, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: x, Y: y})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("storage: plot %s: %w", cols[i], err)
		}
		line.Color = plotutil.Color(series)
		line.Width = vg.Points(1)
		pl.Add(line)
		pl.Legend.Add(cols[i], line)
		series++
	}
	if series == 0 {
		return fmt.Errorf("%w: no finite power column to plot", ErrShape)
	}
	pl.Legend.Top = true

	return withLock(p.Path, func() error {
		if err := pl.Save(8*vg.Inch, 5*vg.Inch, p.Path); err != nil {
			return fmt.Errorf("storage: save plot: %w", err)
		}
		return nil
	})
}

func (p *Plot) title(meta Meta) string {
	if p.Title != "" {
		return p.Title
	}
	if n, ok := meta["Nmesh"]; ok {
		return fmt.Sprintf("Power spectrum multipoles (Nmesh=%v)", n)
	}
	return "Power spectrum multipoles"
}
