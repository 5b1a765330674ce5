package backtest

import (
	"errors"
	"fmt"
	"os"

	"github.com/pplcc/plotext"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// SaveEquityPlot renders the equity curve and its running drawdown as
// two time-aligned panels into a PNG file.
func SaveEquityPlot(path string, curve []EquityPoint) (err error) {
	if len(curve) == 0 {
		return errors.New("empty equity curve")
	}

	equity := plot.New()
	equity.Title.Text = "Equity"
	equity.Y.Label.Text = "Value"
	equity.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04:05"}

	eqPts := make(plotter.XYs, len(curve))
	for i, pt := range curve {
		v, _ := pt.Equity.Float64()
		eqPts[i] = plotter.XY{X: float64(pt.Time.Unix()), Y: v}
	}
	eqLine, err := plotter.NewLine(eqPts)
	if err != nil {
		return fmt.Errorf("failed to create equity graph: %w", err)
	}
	equity.Add(eqLine)

	drawdown := plot.New()
	drawdown.Title.Text = "Drawdown"
	drawdown.Y.Label.Text = "Fraction of peak"
	drawdown.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04:05"}

	ddPts := make(plotter.XYs, len(curve))
	peak := 0.0
	for i, pt := range curve {
		v, _ := pt.Equity.Float64()
		if v > peak {
			peak = v
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - v) / peak
		}
		ddPts[i] = plotter.XY{X: float64(pt.Time.Unix()), Y: dd}
	}
	ddLine, err := plotter.NewLine(ddPts)
	if err != nil {
		return fmt.Errorf("failed to create drawdown graph: %w", err)
	}
	drawdown.Add(ddLine)

	plotext.UniteAxisRanges([]*plot.Axis{&equity.X, &drawdown.X})

	tbl := plotext.Table{
		RowHeights: []float64{2, 1},
		ColWidths:  []float64{1},
	}

	img := vgimg.New(vg.Points(900), vg.Points(600))
	dc := draw.New(img)

	canvases := tbl.Align([][]*plot.Plot{{equity}, {drawdown}}, dc)
	equity.Draw(canvases[0][0])
	drawdown.Draw(canvases[1][0])

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close plot file: %w", cerr))
		}
	}()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write plot to file: %w", err)
	}

	return nil
}
