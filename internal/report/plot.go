package report

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series is one named convergence curve.
type Series struct {
	Name   string
	Values []float64
}

// Plot size used for saved and streamed charts.
const (
	PlotWidth  = 6 * vg.Inch
	PlotHeight = 4 * vg.Inch
)

// ConvergencePlot draws best score against iteration for each series. The
// Y axis is logarithmic when every value is positive.
func ConvergencePlot(title string, series ...Series) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, errors.New("no series to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Best Fitness"

	positive := true
	points := 0
	for _, s := range series {
		for _, v := range s.Values {
			if v <= 0 {
				positive = false
			}
		}
		points += len(s.Values)
	}
	if points == 0 {
		return nil, errors.New("series contain no values")
	}

	for i, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.Values))
		for t, v := range s.Values {
			pts[t].X = float64(t)
			pts[t].Y = v
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)

		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	p.Legend.Top = true

	if positive {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Add(plotter.NewGrid())

	return p, nil
}

// SaveConvergence writes the chart to path; the extension picks the format
// (png, svg, pdf).
func SaveConvergence(path, title string, series ...Series) error {
	p, err := ConvergencePlot(title, series...)
	if err != nil {
		return err
	}
	if err := p.Save(PlotWidth, PlotHeight, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// WriteConvergencePNG renders the chart as PNG into w.
func WriteConvergencePNG(w io.Writer, title string, series ...Series) error {
	p, err := ConvergencePlot(title, series...)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
