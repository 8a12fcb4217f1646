// Package lasreport renders chart reports for decoded point clouds: a PNG
// elevation histogram (gonum/plot) and an interactive HTML page (go-echarts).
package lasreport

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Silvaye/FSCT-dockerized/internal/fsutil"
	"github.com/Silvaye/FSCT-dockerized/internal/las"
	"github.com/Silvaye/FSCT-dockerized/internal/lasstats"
	"github.com/Silvaye/FSCT-dockerized/internal/monitoring"
	"github.com/Silvaye/FSCT-dockerized/internal/security"
)

var (
	// ErrNoPoints is returned when a chart needs at least one point.
	ErrNoPoints = errors.New("lasreport: dataset has no points")
	// ErrNonFinite is returned when every value a chart would plot is NaN
	// or infinite.
	ErrNonFinite = errors.New("lasreport: no finite values to plot")
)

// Report file suffixes appended to the sanitised input name.
const (
	HISTOGRAM_SUFFIX = "_zhist.png"
	PAGE_SUFFIX      = "_report.html"
)

// viridis, low to high.
var palette = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// Options controls chart resolution.
type Options struct {
	HistogramBins    int
	ScatterMaxPoints int
}

func (o Options) withDefaults() Options {
	if o.HistogramBins < 1 {
		o.HistogramBins = 50
	}
	if o.ScatterMaxPoints < 1 {
		o.ScatterMaxPoints = 5000
	}
	return o
}

// finite returns the finite entries of values and how many were dropped.
func finite(values []float64) ([]float64, int) {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out, len(values) - len(out)
}

// WriteElevationHistogram renders the Z distribution of ds as a PNG.
// Non-finite Z values are left out of the bins.
func WriteElevationHistogram(w io.Writer, name string, ds *las.Dataset, bins int) error {
	if len(ds.Points.Z) == 0 {
		return ErrNoPoints
	}
	z, dropped := finite(ds.Points.Z)
	if len(z) == 0 {
		return fmt.Errorf("%s: %d Z values: %w", name, dropped, ErrNonFinite)
	}
	if dropped > 0 {
		monitoring.Logf("lasreport: %s: %d non-finite Z values left out of the histogram", name, dropped)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Elevation", name)
	p.X.Label.Text = "Z"
	p.Y.Label.Text = "Points"

	h, err := plotter.NewHist(plotter.Values(z), bins)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	h.FillColor = color.RGBA{R: 0x31, G: 0x68, B: 0x8e, A: 0xff}
	h.LineStyle.Width = vg.Points(0.5)
	p.Add(h)

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render histogram: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write histogram: %w", err)
	}
	return nil
}

// ScatterStride returns the sampling step that keeps at most limit of n
// points.
func ScatterStride(n, limit int) int {
	if limit < 1 || n <= limit {
		return 1
	}
	return (n + limit - 1) / limit
}

func classBar(sum lasstats.Summary) *charts.Bar {
	x := make([]string, 0, len(sum.Classification))
	y := make([]opts.BarData, 0, len(sum.Classification))
	for _, cc := range sum.Classification {
		x = append(x, fmt.Sprintf("%d %s", cc.Class, cc.Name))
		y = append(y, opts.BarData{Value: cc.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Classification", Subtitle: fmt.Sprintf("points=%d", sum.Count)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("classification", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func returnBar(sum lasstats.Summary) *charts.Bar {
	x := make([]string, 0, len(sum.Returns))
	y := make([]opts.BarData, 0, len(sum.Returns))
	for _, rc := range sum.Returns {
		x = append(x, fmt.Sprintf("return %d", rc.Return))
		y = append(y, opts.BarData{Value: rc.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Return Numbers"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("returns", y)
	return bar
}

// topDownScatter samples every stride-th point with finite coordinates. It
// returns nil when no point qualifies.
func topDownScatter(name string, ds *las.Dataset, maxPoints int) *charts.Scatter {
	p := ds.Points
	n := ds.Len()
	stride := ScatterStride(n, maxPoints)

	var b lasstats.Bounds
	data := make([]opts.ScatterData, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		x, y, z := p.X[i], p.Y[i], p.Z[i]
		if !isFinite(x) || !isFinite(y) || !isFinite(z) {
			continue
		}
		if len(data) == 0 {
			b = lasstats.Bounds{MinX: x, MaxX: x, MinY: y, MaxY: y, MinZ: z, MaxZ: z}
		}
		b.MinX, b.MaxX = min(b.MinX, x), max(b.MaxX, x)
		b.MinY, b.MaxY = min(b.MinY, y), max(b.MaxY, y)
		b.MinZ, b.MaxZ = min(b.MinZ, z), max(b.MaxZ, z)
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, z}})
	}
	if len(data) == 0 {
		return nil
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: name, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Top-down view", Subtitle: fmt.Sprintf("points=%d shown=%d stride=%d", n, len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: b.MinX, Max: b.MaxX, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: b.MinY, Max: b.MaxY, Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(b.MinZ),
			Max:        float32(b.MaxZ),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: palette},
		}),
	)
	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	return scatter
}

// WritePage renders an HTML page with the classification and return
// histograms and a strided top-down scatter coloured by Z.
func WritePage(w io.Writer, name string, ds *las.Dataset, sum lasstats.Summary, maxPoints int) error {
	page := components.NewPage()
	page.PageTitle = name
	page.AddCharts(classBar(sum), returnBar(sum))
	if scatter := topDownScatter(name, ds, maxPoints); scatter != nil {
		page.AddCharts(scatter)
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// WriteReports writes both reports for input into dir and returns the
// paths written. The histogram is skipped for empty datasets.
func WriteReports(fsys fsutil.FileSystem, dir, input string, ds *las.Dataset, sum lasstats.Summary, o Options) ([]string, error) {
	o = o.withDefaults()
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	name := filepath.Base(input)

	var written []string
	if ds.Len() > 0 {
		path := filepath.Join(dir, security.OutputName(input, HISTOGRAM_SUFFIX))
		if err := writeFile(fsys, path, func(w io.Writer) error {
			return WriteElevationHistogram(w, name, ds, o.HistogramBins)
		}); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, security.OutputName(input, PAGE_SUFFIX))
	if err := writeFile(fsys, path, func(w io.Writer) error {
		return WritePage(w, name, ds, sum, o.ScatterMaxPoints)
	}); err != nil {
		return written, err
	}
	return append(written, path), nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func writeFile(fsys fsutil.FileSystem, path string, render func(io.Writer) error) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
