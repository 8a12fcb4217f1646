package las

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Silvaye/FSCT-dockerized/internal/monitoring"
)

// Decoder defaults.
const (
	DEFAULT_PARALLEL_THRESHOLD = 1 << 16 // points below this are decoded on the calling goroutine
	MIN_POINTS_PER_WORKER      = 4096    // smallest index range handed to a worker
)

// Decoder decodes LAS buffers. A Decoder holds only settings and is safe for
// concurrent use.
type Decoder struct {
	workers           int
	parallelThreshold int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithWorkers sets the number of goroutines used for the point walk.
// Values below 1 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(d *Decoder) { d.workers = n }
}

// WithParallelThreshold sets the point count at which the walk is split
// across workers.
func WithParallelThreshold(n int) Option {
	return func(d *Decoder) { d.parallelThreshold = n }
}

// NewDecoder creates a decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{parallelThreshold: DEFAULT_PARALLEL_THRESHOLD}
	for _, o := range opts {
		o(d)
	}
	if d.workers < 1 {
		d.workers = runtime.NumCPU()
	}
	if d.parallelThreshold < 1 {
		d.parallelThreshold = 1
	}
	return d
}

// Decode decodes buf with a default Decoder configured by opts.
func Decode(buf []byte, opts ...Option) (*Dataset, error) {
	return NewDecoder(opts...).Decode(buf)
}

// Decode runs the full pipeline over buf. buf is never modified. On error no
// dataset is returned.
func (d *Decoder) Decode(buf []byte) (*Dataset, error) {
	start := time.Now()

	h, err := ReadHeader(buf)
	if err != nil {
		return nil, err
	}
	vlrs, evlrs, err := ReadRecords(buf, h)
	if err != nil {
		return nil, err
	}
	layout, skipped, err := ResolveLayout(h, vlrs, evlrs)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		monitoring.Logf("%v", s)
	}
	if err := checkPointSpan(buf, h); err != nil {
		return nil, err
	}

	n := int(h.NumberOfPoints)
	ds := &Dataset{
		Header:      *h,
		VLRs:        vlrs,
		EVLRs:       evlrs,
		Layout:      layout,
		ExtraFields: layout.Extra,
		Skipped:     skipped,
	}
	writers, err := bindColumns(ds, n)
	if err != nil {
		return nil, err
	}

	var points []byte
	if n > 0 {
		points = buf[h.OffsetToPointData:]
	}
	stride := layout.RecordLength
	workers := d.workerCount(n)
	if workers == 1 {
		walk(points, stride, 0, n, writers)
	} else {
		var wg sync.WaitGroup
		chunk := (n + workers - 1) / workers
		for lo := 0; lo < n; lo += chunk {
			hi := min(lo+chunk, n)
			wg.Add(1)
			go func(lo, hi int) {
				defer wg.Done()
				walk(points, stride, lo, hi, writers)
			}(lo, hi)
		}
		wg.Wait()
	}

	monitoring.Debugf("las: decoded %d points (format %d, stride %d, %d extra fields, %d workers) in %v",
		n, h.PointDataFormat, stride, len(layout.Extra), workers, time.Since(start))
	return ds, nil
}

func (d *Decoder) workerCount(n int) int {
	if d.workers <= 1 || n < d.parallelThreshold {
		return 1
	}
	return max(1, min(d.workers, n/MIN_POINTS_PER_WORKER))
}

// checkPointSpan verifies the whole point array lies inside buf before any
// column is allocated.
func checkPointSpan(buf []byte, h *Header) error {
	if h.NumberOfPoints == 0 {
		return nil
	}
	start := uint64(h.OffsetToPointData)
	stride := uint64(h.PointDataRecordLength)
	size := uint64(len(buf))

	if start < uint64(h.HeaderSize) {
		return &FormatError{
			Op:     "points",
			Offset: OFFSET_POINT_DATA,
			Need:   int64(h.HeaderSize),
			Have:   int64(start),
			Msg:    "offset to point data lies inside the public header",
			Err:    ErrMalformedRecord,
		}
	}
	if start > size || h.NumberOfPoints > (size-start)/stride {
		need := uint64(math.MaxInt64)
		if h.NumberOfPoints <= (math.MaxInt64-start)/stride {
			need = start + h.NumberOfPoints*stride
		}
		return truncated("points", int64(start), int64(need), int64(size),
			fmt.Sprintf("point array of %d records × %d bytes", h.NumberOfPoints, stride))
	}
	return nil
}

// writer decodes one field of record rec into row i of its column.
type writer func(rec []byte, i int)

func walk(points []byte, stride, lo, hi int, writers []writer) {
	for i := lo; i < hi; i++ {
		base := i * stride
		rec := points[base : base+stride : base+stride]
		for _, w := range writers {
			w(rec, i)
		}
	}
}

// bindColumns allocates every column of ds and returns one writer per layout
// entry, each closed over its destination column.
func bindColumns(ds *Dataset, n int) ([]writer, error) {
	layout := ds.Layout
	writers := make([]writer, 0, len(layout.Fields)+len(layout.Extra))

	for _, f := range layout.Fields {
		if f.IsBitfield() {
			cols := make([][]uint8, len(f.Bits))
			for k, b := range f.Bits {
				cols[k] = make([]uint8, n)
				if err := ds.Points.set(b.ID, cols[k]); err != nil {
					return nil, err
				}
			}
			writers = append(writers, bitfieldWriter(f, cols))
			continue
		}
		col := newColumn(f.Type, f.Transform != nil, n)
		if err := ds.Points.set(f.ID, col); err != nil {
			return nil, err
		}
		w, err := scalarWriter(f, col)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	ds.Extra = make([]Column, 0, len(layout.Extra))
	for _, e := range layout.Extra {
		f := e.Field()
		col := newColumn(f.Type, f.Transform != nil, n)
		w, err := scalarWriter(f, col)
		if err != nil {
			return nil, err
		}
		ds.Extra = append(ds.Extra, Column{Name: e.Name, Type: columnType(f), Data: col})
		writers = append(writers, w)
	}
	return writers, nil
}

func bitfieldWriter(f Field, cols [][]uint8) writer {
	off := f.Offset
	shifts := make([]uint8, len(f.Bits))
	masks := make([]uint8, len(f.Bits))
	for k, b := range f.Bits {
		shifts[k] = b.Start
		masks[k] = uint8(1<<b.Width - 1)
	}
	return func(rec []byte, i int) {
		v := rec[off]
		for k, col := range cols {
			col[i] = (v >> shifts[k]) & masks[k]
		}
	}
}

func scalarWriter(f Field, col any) (writer, error) {
	off := f.Offset
	if tr := f.Transform; tr != nil {
		dst, ok := col.([]float64)
		if !ok {
			return nil, fmt.Errorf("las: transformed field %s needs a float64 column, got %T", f.Name, col)
		}
		scale, offset := tr.Scale, tr.Offset
		// The explicit float64 conversion rounds the product before the add,
		// so values equal raw*scale+offset on every architecture (no FMA).
		if f.Type == TypeInt32 {
			return func(rec []byte, i int) {
				dst[i] = float64(float64(int32(binary.LittleEndian.Uint32(rec[off:])))*scale) + offset
			}, nil
		}
		t := f.Type
		return func(rec []byte, i int) {
			dst[i] = float64(readFloat(t, rec[off:])*scale) + offset
		}, nil
	}

	switch dst := col.(type) {
	case []uint8:
		return func(rec []byte, i int) { dst[i] = rec[off] }, nil
	case []int8:
		return func(rec []byte, i int) { dst[i] = int8(rec[off]) }, nil
	case []uint16:
		return func(rec []byte, i int) { dst[i] = binary.LittleEndian.Uint16(rec[off:]) }, nil
	case []int16:
		return func(rec []byte, i int) { dst[i] = int16(binary.LittleEndian.Uint16(rec[off:])) }, nil
	case []uint32:
		return func(rec []byte, i int) { dst[i] = binary.LittleEndian.Uint32(rec[off:]) }, nil
	case []int32:
		return func(rec []byte, i int) { dst[i] = int32(binary.LittleEndian.Uint32(rec[off:])) }, nil
	case []uint64:
		return func(rec []byte, i int) { dst[i] = binary.LittleEndian.Uint64(rec[off:]) }, nil
	case []float32:
		return func(rec []byte, i int) { dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(rec[off:])) }, nil
	case []float64:
		return func(rec []byte, i int) { dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(rec[off:])) }, nil
	}
	return nil, fmt.Errorf("las: field %s has unsupported type %s", f.Name, f.Type)
}
