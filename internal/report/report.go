// Package report charts one feature across the rows of a run, one series per
// channel. HTML output uses go-echarts; PNG and SVG output use gonum/plot.
package report

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sensor.features/internal/features"
	"github.com/banshee-data/sensor.features/internal/fsutil"
)

// missing is the echarts placeholder for a gap in a line series.
const missing = "-"

// Collector accumulates one feature per channel over the rows of a run.
type Collector struct {
	feature features.Feature
	series  [features.NumChannels][]features.Value
	rows    int
}

// NewCollector returns a Collector that records f.
func NewCollector(f features.Feature) *Collector {
	return &Collector{feature: f}
}

// Feature returns the charted feature.
func (c *Collector) Feature() features.Feature { return c.feature }

// Rows returns the number of rows collected.
func (c *Collector) Rows() int { return c.rows }

// Series returns the collected values for one channel in row order.
func (c *Collector) Series(ch features.Channel) []features.Value {
	out := make([]features.Value, len(c.series[ch]))
	copy(out, c.series[ch])
	return out
}

// WriteRow records the charted feature of every channel in row. Rows must
// arrive in index order.
func (c *Collector) WriteRow(index int, row features.Row) error {
	if index != c.rows {
		return fmt.Errorf("report: row %d out of order, want %d", index, c.rows)
	}
	for i, cr := range row.Channels {
		c.series[i] = append(c.series[i], cr.Vector.Get(c.feature))
	}
	c.rows++
	return nil
}

// Render writes the chart to path. The extension selects the format:
// .html, .png or .svg.
func (c *Collector) Render(fsys fsutil.FileSystem, path string) error {
	var buf bytes.Buffer
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".html":
		if err := c.renderHTML(&buf); err != nil {
			return err
		}
	case ".png", ".svg":
		if err := c.renderPlot(&buf, ext[1:]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported report format %q", ext)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (c *Collector) title() string {
	return fmt.Sprintf("Feature %s by channel", c.feature)
}

func (c *Collector) renderHTML(buf *bytes.Buffer) error {
	xs := make([]int, c.rows)
	for i := range xs {
		xs[i] = i + 1
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: c.title(), Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: c.title(), Subtitle: fmt.Sprintf("rows=%d", c.rows)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Row", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: c.feature.String()}),
	)
	line.SetXAxis(xs)
	for _, ch := range features.Channels {
		line.AddSeries(ch.String(), lineData(c.series[ch]))
	}

	if err := line.Render(buf); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// lineData maps undefined and non-finite values to gaps.
func lineData(values []features.Value) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		if !plottable(v) {
			out[i] = opts.LineData{Value: missing}
			continue
		}
		out[i] = opts.LineData{Value: v.V}
	}
	return out
}

func plottable(v features.Value) bool {
	return v.OK && !math.IsNaN(v.V) && !math.IsInf(v.V, 0)
}

func (c *Collector) renderPlot(buf *bytes.Buffer, format string) error {
	p := plot.New()
	p.Title.Text = c.title()
	p.X.Label.Text = "Row"
	p.Y.Label.Text = c.feature.String()

	for i, ch := range features.Channels {
		segments := segmentsOf(c.series[ch])
		for j, pts := range segments {
			l, err := plotter.NewLine(pts)
			if err != nil {
				return fmt.Errorf("plot %s: %w", ch, err)
			}
			l.Color = plotutil.Color(i)
			l.Width = vg.Points(1)
			p.Add(l)
			if j == 0 {
				p.Legend.Add(ch.String(), l)
			}
		}
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	w, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("render %s report: %w", format, err)
	}
	if _, err := w.WriteTo(buf); err != nil {
		return fmt.Errorf("render %s report: %w", format, err)
	}
	return nil
}

// segmentsOf splits a series into runs of consecutive plottable values.
// X is the one-based row number.
func segmentsOf(values []features.Value) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i, v := range values {
		if !plottable(v) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(i + 1), Y: v.V})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
