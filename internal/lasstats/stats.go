// Package lasstats computes summary statistics over decoded point clouds.
package lasstats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Silvaye/FSCT-dockerized/internal/las"
)

// ZQuantileLevels are the probabilities reported in Summary.ZQuantiles.
var ZQuantileLevels = []float64{0.01, 0.05, 0.25, 0.5, 0.75, 0.95, 0.99}

// ASPRS standard point classes (LAS 1.4 R15, Table 17).
var classNames = map[uint8]string{
	0:  "Created, never classified",
	1:  "Unclassified",
	2:  "Ground",
	3:  "Low vegetation",
	4:  "Medium vegetation",
	5:  "High vegetation",
	6:  "Building",
	7:  "Low point (noise)",
	8:  "Model key-point",
	9:  "Water",
	10: "Rail",
	11: "Road surface",
	12: "Overlap",
	13: "Wire guard",
	14: "Wire conductor",
	15: "Transmission tower",
	16: "Wire-structure connector",
	17: "Bridge deck",
	18: "High noise",
}

// ClassName returns the ASPRS name of a classification code.
func ClassName(code uint8) string {
	if name, ok := classNames[code]; ok {
		return name
	}
	if code < 64 {
		return "Reserved"
	}
	return "User definable"
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// Quantile is one point of the empirical Z distribution.
type Quantile struct {
	P float64 `json:"p"`
	Z float64 `json:"z"`
}

// Range is a closed interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ClassCount is the number of points carrying one classification code.
type ClassCount struct {
	Class uint8  `json:"class"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ReturnCount is the number of points with one return number.
type ReturnCount struct {
	Return uint8 `json:"return"`
	Count  int   `json:"count"`
}

// ColumnStats summarises one numeric column.
type ColumnStats struct {
	Name   string  `json:"name"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Summary is the statistics of one dataset. Fields that need points are
// zero for an empty dataset.
type Summary struct {
	Count          int           `json:"count"`
	Bounds         Bounds        `json:"bounds"`
	MeanZ          float64       `json:"mean_z"`
	StdDevZ        float64       `json:"stddev_z"`
	ZQuantiles     []Quantile    `json:"z_quantiles,omitempty"`
	GPSTime        *Range        `json:"gps_time,omitempty"`
	Classification []ClassCount  `json:"classification,omitempty"`
	Returns        []ReturnCount `json:"returns,omitempty"`
	Extra          []ColumnStats `json:"extra,omitempty"`
}

// Summarize computes the summary of ds.
func Summarize(ds *las.Dataset) Summary {
	p := ds.Points
	s := Summary{Count: ds.Len()}
	if s.Count == 0 {
		return s
	}

	s.Bounds = Bounds{
		MinX: floats.Min(p.X), MaxX: floats.Max(p.X),
		MinY: floats.Min(p.Y), MaxY: floats.Max(p.Y),
		MinZ: floats.Min(p.Z), MaxZ: floats.Max(p.Z),
	}
	s.MeanZ, s.StdDevZ = stat.MeanStdDev(p.Z, nil)
	if s.Count == 1 {
		s.StdDevZ = 0
	}
	s.ZQuantiles = Quantiles(p.Z, ZQuantileLevels)
	if p.GPSTime != nil {
		s.GPSTime = &Range{Min: floats.Min(p.GPSTime), Max: floats.Max(p.GPSTime)}
	}
	s.Classification = ClassHistogram(p.Classification)
	s.Returns = ReturnHistogram(p.ReturnNumber)

	for _, c := range ds.Extra {
		s.Extra = append(s.Extra, Column(c))
	}
	return s
}

// Quantiles returns the empirical quantiles of values at each level. values
// is not modified.
func Quantiles(values []float64, levels []float64) []Quantile {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	out := make([]Quantile, len(levels))
	for i, p := range levels {
		out[i] = Quantile{P: p, Z: stat.Quantile(p, stat.Empirical, sorted, nil)}
	}
	return out
}

// ClassHistogram counts points per classification code, sorted by code.
func ClassHistogram(classes []uint8) []ClassCount {
	var counts [256]int
	for _, c := range classes {
		counts[c]++
	}
	var out []ClassCount
	for code, n := range counts {
		if n > 0 {
			out = append(out, ClassCount{Class: uint8(code), Name: ClassName(uint8(code)), Count: n})
		}
	}
	return out
}

// ReturnHistogram counts points per return number, sorted by return.
func ReturnHistogram(returns []uint8) []ReturnCount {
	var counts [16]int
	for _, r := range returns {
		counts[r&0x0F]++
	}
	var out []ReturnCount
	for r, n := range counts {
		if n > 0 {
			out = append(out, ReturnCount{Return: uint8(r), Count: n})
		}
	}
	return out
}

// Column summarises any decoded column.
func Column(c las.Column) ColumnStats {
	values := make([]float64, c.Len())
	for i := range values {
		values[i] = c.Float64(i)
	}
	cs := ColumnStats{Name: c.Name}
	if len(values) == 0 {
		return cs
	}
	cs.Min, cs.Max = floats.Min(values), floats.Max(values)
	cs.Mean, cs.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		cs.StdDev = 0
	}
	return cs
}

// Histogram bins values into n equal-width bins spanning [min, max] and
// returns the bin edges (n+1) and counts (n). NaN and infinite values are
// not counted.
func Histogram(values []float64, n int) (edges, counts []float64) {
	values = finiteValues(values)
	if len(values) == 0 || n < 1 {
		return nil, nil
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		hi = lo + 1
	}
	edges = floats.Span(make([]float64, n+1), lo, hi)
	// stat.Histogram treats the last divider as exclusive.
	edges[n] = math.Nextafter(hi, math.Inf(1))

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	counts = stat.Histogram(nil, edges, sorted, nil)
	edges[n] = hi
	return edges, counts
}

// CheckBounds compares computed bounds against those declared in the
// header and reports the largest absolute difference over the six values.
func CheckBounds(h las.Header, b Bounds) float64 {
	diffs := []float64{
		h.MinX - b.MinX, h.MaxX - b.MaxX,
		h.MinY - b.MinY, h.MaxY - b.MaxY,
		h.MinZ - b.MinZ, h.MaxZ - b.MaxZ,
	}
	for i, d := range diffs {
		diffs[i] = math.Abs(d)
	}
	return floats.Max(diffs)
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
