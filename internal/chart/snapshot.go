package chart

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"StockLens/internal/model"

	"github.com/guregu/null/v6"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	snapshotClose = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	snapshotMA5   = color.RGBA{R: 0xff, G: 0xa5, A: 0xff}
	snapshotMA20  = color.RGBA{B: 0xff, A: 0xff}
)

func closeXYs(series model.PriceSeries) plotter.XYs {
	return definedXYs(series, func(o model.Observation) null.Float { return null.FloatFrom(o.Close) })
}

// definedXYs keeps only the rows where pick yields a valid, finite value.
func definedXYs(series model.PriceSeries, pick func(model.Observation) null.Float) plotter.XYs {
	xys := make(plotter.XYs, 0, series.Len())
	for _, row := range series.Rows {
		v := finiteNull(pick(row))
		if !v.Valid {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(row.Time.Unix()), Y: v.Float64})
	}
	return xys
}

// SaveSnapshot writes a static image of the close price and moving averages
// to path. The format follows the file extension.
func SaveSnapshot(path string, series model.PriceSeries) error {
	if series.Empty() {
		return fmt.Errorf("snapshot of empty series")
	}

	p := plot.New()
	p.Title.Text = PlainTitle(series)
	p.X.Tick.Marker = plot.TimeTicks{Format: model.DateLayout}
	p.Y.Label.Text = "Close"
	p.Add(plotter.NewGrid())

	lines := []struct {
		name  string
		xys   plotter.XYs
		color color.Color
		width vg.Length
	}{
		{"Close", closeXYs(series), snapshotClose, vg.Points(1.5)},
		{"MA 5", definedXYs(series, func(o model.Observation) null.Float { return o.MA5 }), snapshotMA5, vg.Points(1)},
		{"MA 20", definedXYs(series, func(o model.Observation) null.Float { return o.MA20 }), snapshotMA20, vg.Points(1)},
	}
	for _, l := range lines {
		if len(l.xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(l.xys)
		if err != nil {
			return fmt.Errorf("%s line: %w", l.name, err)
		}
		line.LineStyle.Color = l.color
		line.LineStyle.Width = l.width
		p.Add(line)
		p.Legend.Add(l.name, line)
	}
	p.Legend.Top = true

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(12*vg.Inch, 5*vg.Inch, path)
}
