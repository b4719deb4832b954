// Package report renders evaluation plots as PNG files.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	width  = 8 * vg.Inch
	height = 6 * vg.Inch
)

// cells adapts a confusion matrix to plotter.GridXYZ. Column c is the
// predicted class and row r the actual class, with actual 0 on top.
type cells [2][2]int

func (g cells) Dims() (c, r int)   { return 2, 2 }
func (g cells) Z(c, r int) float64 { return float64(g[1-r][c]) }
func (g cells) X(c int) float64    { return float64(c) }
func (g cells) Y(r int) float64    { return float64(r) }

func classTicks(bottomUp bool) plot.ConstantTicks {
	if bottomUp {
		return plot.ConstantTicks{{Value: 0, Label: "1"}, {Value: 1, Label: "0"}}
	}
	return plot.ConstantTicks{{Value: 0, Label: "0"}, {Value: 1, Label: "1"}}
}

func save(p *plot.Plot, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if err := p.Save(width, height, filename); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// ConfusionMatrixPNG draws cm ([[tn, fp], [fn, tp]]) as an annotated heat map.
func ConfusionMatrixPNG(filename string, cm [2][2]int) error {
	p := plot.New()
	p.Title.Text = "Confusion Matrix"
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "Actual"
	p.X.Tick.Marker = classTicks(false)
	p.Y.Tick.Marker = classTicks(true)

	g := cells(cm)
	hm := plotter.NewHeatMap(g, palette.Heat(12, 1))
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	var xys plotter.XYLabels
	for c := 0; c < 2; c++ {
		for r := 0; r < 2; r++ {
			xys.XYs = append(xys.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			xys.Labels = append(xys.Labels, strconv.Itoa(int(g.Z(c, r))))
		}
	}
	labels, err := plotter.NewLabels(xys)
	if err != nil {
		return fmt.Errorf("failed to create labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = color.Black
		labels.TextStyle[i].XAlign = -0.5
		labels.TextStyle[i].YAlign = -0.5
	}
	p.Add(labels)

	return save(p, filename)
}

// ROCCurvePNG draws the ROC curve against the chance diagonal.
func ROCCurvePNG(filename string, fpr, tpr []float64, auc float64) error {
	if len(fpr) != len(tpr) {
		return fmt.Errorf("report: %d fpr values but %d tpr values", len(fpr), len(tpr))
	}
	p := plot.New()
	p.Title.Text = "ROC Curve"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(fpr))
	for i := range fpr {
		pts[i].X, pts[i].Y = fpr[i], tpr[i]
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to create ROC line: %w", err)
	}
	curve.LineStyle.Width = vg.Points(2)
	curve.LineStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return fmt.Errorf("failed to create diagonal: %w", err)
	}
	chance.LineStyle.Color = color.Black
	chance.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}

	p.Add(curve, chance)
	p.Legend.Add(fmt.Sprintf("ROC Curve (AUC = %.2f)", auc), curve)

	return save(p, filename)
}
