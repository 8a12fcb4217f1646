package lasreport

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silvaye/FSCT-dockerized/internal/fsutil"
	"github.com/Silvaye/FSCT-dockerized/internal/las"
	"github.com/Silvaye/FSCT-dockerized/internal/lasstats"
	"github.com/Silvaye/FSCT-dockerized/internal/testutil"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func sampleDataset(t *testing.T, n int) *las.Dataset {
	t.Helper()
	b := testutil.NewLASBuilder(1)
	b.Scale = [3]float64{0.01, 0.01, 0.01}
	for i := 0; i < n; i++ {
		b.AddPoint(testutil.NewPointRecord(28).
			XYZ(int32(i*10), int32(i*5), int32(1000+i)).
			U8(14, 0b00001001).
			U8(15, uint8(2+i%2)))
	}
	ds, err := las.Decode(b.Bytes())
	require.NoError(t, err)
	return ds
}

func TestScatterStride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, limit, want int
	}{
		{0, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{100, 10, 10},
		{101, 10, 11},
		{50, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScatterStride(tt.n, tt.limit), "n=%d limit=%d", tt.n, tt.limit)
	}
}

func TestWriteElevationHistogram(t *testing.T) {
	t.Parallel()

	ds := sampleDataset(t, 40)
	var buf bytes.Buffer
	require.NoError(t, WriteElevationHistogram(&buf, "sample.las", ds, 8))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
}

func TestWriteElevationHistogram_Empty(t *testing.T) {
	t.Parallel()

	ds := sampleDataset(t, 0)
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteElevationHistogram(&buf, "empty.las", ds, 8), ErrNoPoints)
	assert.Zero(t, buf.Len())
}

func TestWritePage(t *testing.T) {
	t.Parallel()

	ds := sampleDataset(t, 30)
	sum := lasstats.Summarize(ds)

	var buf bytes.Buffer
	require.NoError(t, WritePage(&buf, "sample.las", ds, sum, 10))
	html := buf.String()

	assert.Contains(t, html, "Classification")
	assert.Contains(t, html, "Return Numbers")
	assert.Contains(t, html, "Top-down view")
	assert.Contains(t, html, "2 Ground")
	assert.Contains(t, html, "shown=10 stride=3")
}

func TestWritePage_EmptyDatasetOmitsScatter(t *testing.T) {
	t.Parallel()

	ds := sampleDataset(t, 0)
	var buf bytes.Buffer
	require.NoError(t, WritePage(&buf, "empty.las", ds, lasstats.Summarize(ds), 10))
	assert.NotContains(t, buf.String(), "Top-down view")
}

func TestWriteReports(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	ds := sampleDataset(t, 12)

	paths, err := WriteReports(fsys, "out", "/data/Tile 01.las", ds, lasstats.Summarize(ds), Options{})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join("out", "Tile_01"+HISTOGRAM_SUFFIX),
		filepath.Join("out", "Tile_01"+PAGE_SUFFIX),
	}, paths)

	png, err := fsys.ReadFile(paths[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngSignature))

	page, err := fsys.ReadFile(paths[1])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(page), "<html"))
}

func TestWriteReports_EmptySkipsHistogram(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	ds := sampleDataset(t, 0)

	paths, err := WriteReports(fsys, "out", "empty.las", ds, lasstats.Summarize(ds), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("out", "empty"+PAGE_SUFFIX)}, paths)
}

func nonFiniteDataset(t *testing.T) *las.Dataset {
	t.Helper()
	b := testutil.NewLASBuilder(1)
	b.Scale = [3]float64{math.NaN(), math.NaN(), math.NaN()}
	b.AddPoint(testutil.NewPointRecord(28).XYZ(1, 2, 3))
	b.AddPoint(testutil.NewPointRecord(28).XYZ(4, 5, 6))
	ds, err := las.Decode(b.Bytes())
	require.NoError(t, err)
	return ds
}

func TestWriteElevationHistogram_AllNonFinite(t *testing.T) {
	t.Parallel()

	ds := nonFiniteDataset(t)
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteElevationHistogram(&buf, "nan.las", ds, 50), ErrNonFinite)
	assert.Zero(t, buf.Len())
}

func TestWriteElevationHistogram_SkipsNonFiniteValues(t *testing.T) {
	t.Parallel()

	ds := &las.Dataset{
		Header: las.Header{NumberOfPoints: 4},
		Points: las.Points{
			X: []float64{0, 1, 2, 3},
			Y: []float64{0, 1, 2, 3},
			Z: []float64{1, math.NaN(), math.Inf(1), 4},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteElevationHistogram(&buf, "mixed.las", ds, 4))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))

	var page bytes.Buffer
	require.NoError(t, WritePage(&page, "mixed.las", ds, lasstats.Summary{Count: 4}, 10))
	assert.Contains(t, page.String(), "points=4 shown=2 stride=1")
}

func TestWritePage_NonFiniteOmitsScatter(t *testing.T) {
	t.Parallel()

	ds := nonFiniteDataset(t)
	var buf bytes.Buffer
	require.NoError(t, WritePage(&buf, "nan.las", ds, lasstats.Summary{Count: ds.Len()}, 10))
	assert.NotContains(t, buf.String(), "Top-down view")
}

func TestWriteReports_NonFiniteIsAnError(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	ds := nonFiniteDataset(t)
	_, err := WriteReports(fsys, "out", "nan.las", ds, lasstats.Summary{Count: ds.Len()}, Options{})
	assert.ErrorIs(t, err, ErrNonFinite)
}
