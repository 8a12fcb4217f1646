// Package testutil provides shared test utilities and fixtures.
//
// The LAS builder writes synthetic point-cloud buffers byte by byte. It does
// not import the decoder so decoder tests can use it without an import cycle;
// offsets are repeated here from the format documentation.
package testutil

import (
	"encoding/binary"
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Header byte positions written by the builder.
const (
	HEADER_SIZE_12 = 227
	HEADER_SIZE_13 = 235
	HEADER_SIZE_14 = 375

	VLR_HEADER_SIZE  = 54
	EVLR_HEADER_SIZE = 60
	DESCRIPTOR_SIZE  = 192
)

// StandardRecordLengths are the record lengths of point formats 0-10.
var StandardRecordLengths = [...]uint16{20, 28, 26, 34, 57, 63, 30, 36, 38, 59, 67}

// Record is a VLR or EVLR to be written by LASBuilder.
type Record struct {
	UserID      string
	RecordID    uint16
	Description string
	Data        []byte
}

// LASBuilder assembles a LAS buffer. Zero values give a LAS 1.4 header with
// unit scales; point counts follow the points added unless overridden after
// the last AddPoint call.
type LASBuilder struct {
	VersionMajor uint8
	VersionMinor uint8
	HeaderSize   uint16 // 0 selects the size matching VersionMinor
	PointFormat  uint8
	RecordLength uint16

	GlobalEncoding uint16

	SystemID string
	Software string

	Scale  [3]float64
	Offset [3]float64
	Max    [3]float64
	Min    [3]float64

	LegacyCount   uint32
	ExtendedCount uint64

	VLRs   []Record
	EVLRs  []Record
	Points [][]byte
}

// NewLASBuilder returns a LAS 1.4 builder for the given point format with
// its standard record length and unit scales.
func NewLASBuilder(format uint8) *LASBuilder {
	b := &LASBuilder{
		VersionMajor: 1,
		VersionMinor: 4,
		PointFormat:  format,
		Scale:        [3]float64{1, 1, 1},
		SystemID:     "testutil",
		Software:     "lasbuilder",
	}
	if int(format) < len(StandardRecordLengths) {
		b.RecordLength = StandardRecordLengths[format]
	}
	return b
}

// AddPoint appends a raw point record and bumps both point counts. The
// legacy count is only set for formats below 6.
func (b *LASBuilder) AddPoint(rec []byte) *LASBuilder {
	b.Points = append(b.Points, rec)
	b.ExtendedCount = uint64(len(b.Points))
	if b.PointFormat < 6 {
		b.LegacyCount = uint32(len(b.Points))
	}
	return b
}

// AddVLR appends a variable length record.
func (b *LASBuilder) AddVLR(r Record) *LASBuilder {
	b.VLRs = append(b.VLRs, r)
	return b
}

// AddEVLR appends an extended variable length record, written after the
// point array.
func (b *LASBuilder) AddEVLR(r Record) *LASBuilder {
	b.EVLRs = append(b.EVLRs, r)
	return b
}

func (b *LASBuilder) headerSize() int {
	if b.HeaderSize != 0 {
		return int(b.HeaderSize)
	}
	switch {
	case b.VersionMinor >= 4:
		return HEADER_SIZE_14
	case b.VersionMinor == 3:
		return HEADER_SIZE_13
	}
	return HEADER_SIZE_12
}

// PointDataOffset returns where the point array starts in the built buffer.
func (b *LASBuilder) PointDataOffset() int {
	off := b.headerSize()
	for _, r := range b.VLRs {
		off += VLR_HEADER_SIZE + len(r.Data)
	}
	return off
}

// EVLROffset returns where the first EVLR starts in the built buffer.
func (b *LASBuilder) EVLROffset() int {
	off := b.PointDataOffset()
	for _, p := range b.Points {
		off += len(p)
	}
	return off
}

// Bytes serialises the file.
func (b *LASBuilder) Bytes() []byte {
	hs := b.headerSize()
	// Headers shorter than the 1.4 layout still get room for every field so
	// the builder can write them; the extra bytes are cut off below.
	hdr := make([]byte, max(hs, HEADER_SIZE_14))
	le := binary.LittleEndian

	copy(hdr[0:], "LASF")
	le.PutUint16(hdr[6:], b.GlobalEncoding)
	hdr[24] = b.VersionMajor
	hdr[25] = b.VersionMinor
	copy(hdr[26:58], b.SystemID)
	copy(hdr[58:90], b.Software)
	le.PutUint16(hdr[90:], 1)
	le.PutUint16(hdr[92:], 2024)
	le.PutUint16(hdr[94:], uint16(hs))
	le.PutUint32(hdr[96:], uint32(b.PointDataOffset()))
	le.PutUint32(hdr[100:], uint32(len(b.VLRs)))
	hdr[104] = b.PointFormat
	le.PutUint16(hdr[105:], b.RecordLength)
	le.PutUint32(hdr[107:], b.LegacyCount)
	for axis := 0; axis < 3; axis++ {
		putF64(hdr[131+8*axis:], b.Scale[axis])
		putF64(hdr[155+8*axis:], b.Offset[axis])
		putF64(hdr[179+16*axis:], b.Max[axis])
		putF64(hdr[187+16*axis:], b.Min[axis])
	}
	if len(b.EVLRs) > 0 {
		le.PutUint64(hdr[233:], uint64(b.EVLROffset()))
		le.PutUint32(hdr[241:], uint32(len(b.EVLRs)))
	}
	le.PutUint64(hdr[247:], b.ExtendedCount)

	out := make([]byte, 0, b.EVLROffset()+len(b.EVLRs)*EVLR_HEADER_SIZE)
	out = append(out, hdr[:hs]...)
	for _, r := range b.VLRs {
		out = append(out, vlrHeader(r)...)
		out = append(out, r.Data...)
	}
	for _, p := range b.Points {
		out = append(out, p...)
	}
	for _, r := range b.EVLRs {
		out = append(out, evlrHeader(r)...)
		out = append(out, r.Data...)
	}
	return out
}

func vlrHeader(r Record) []byte {
	h := make([]byte, VLR_HEADER_SIZE)
	copy(h[2:18], r.UserID)
	binary.LittleEndian.PutUint16(h[18:], r.RecordID)
	binary.LittleEndian.PutUint16(h[20:], uint16(len(r.Data)))
	copy(h[22:54], r.Description)
	return h
}

func evlrHeader(r Record) []byte {
	h := make([]byte, EVLR_HEADER_SIZE)
	copy(h[2:18], r.UserID)
	binary.LittleEndian.PutUint16(h[18:], r.RecordID)
	binary.LittleEndian.PutUint64(h[20:], uint64(len(r.Data)))
	copy(h[28:60], r.Description)
	return h
}

func putF64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

// PointRecord is a raw point record under construction.
type PointRecord []byte

// NewPointRecord returns a zeroed record of n bytes.
func NewPointRecord(n int) PointRecord { return make(PointRecord, n) }

func (p PointRecord) U8(off int, v uint8) PointRecord { p[off] = v; return p }

func (p PointRecord) I8(off int, v int8) PointRecord { p[off] = uint8(v); return p }

func (p PointRecord) U16(off int, v uint16) PointRecord {
	binary.LittleEndian.PutUint16(p[off:], v)
	return p
}

func (p PointRecord) I16(off int, v int16) PointRecord { return p.U16(off, uint16(v)) }

func (p PointRecord) U32(off int, v uint32) PointRecord {
	binary.LittleEndian.PutUint32(p[off:], v)
	return p
}

func (p PointRecord) I32(off int, v int32) PointRecord { return p.U32(off, uint32(v)) }

func (p PointRecord) U64(off int, v uint64) PointRecord {
	binary.LittleEndian.PutUint64(p[off:], v)
	return p
}

func (p PointRecord) F32(off int, v float32) PointRecord {
	return p.U32(off, math.Float32bits(v))
}

func (p PointRecord) F64(off int, v float64) PointRecord {
	putF64(p[off:], v)
	return p
}

// XYZ writes the three raw integer coordinates at offsets 0, 4 and 8.
func (p PointRecord) XYZ(x, y, z int32) PointRecord {
	return p.I32(0, x).I32(4, y).I32(8, z)
}

// Descriptor is one Extra Bytes descriptor.
type Descriptor struct {
	Type        uint8
	Options     uint8
	Name        string
	Description string
	Scale       float64 // written when Options has bit 3
	Offset      float64 // written when Options has bit 4
}

// ExtraBytes encodes descriptors into an Extra Bytes record payload.
func ExtraBytes(descs ...Descriptor) []byte {
	out := make([]byte, 0, len(descs)*DESCRIPTOR_SIZE)
	for _, d := range descs {
		b := make([]byte, DESCRIPTOR_SIZE)
		b[2] = d.Type
		b[3] = d.Options
		copy(b[4:36], d.Name)
		putF64(b[112:], d.Scale)
		putF64(b[136:], d.Offset)
		copy(b[160:192], d.Description)
		out = append(out, b...)
	}
	return out
}

// ExtraBytesRecord wraps descriptors in the LASF_Spec/4 record.
func ExtraBytesRecord(descs ...Descriptor) Record {
	return Record{UserID: "LASF_Spec", RecordID: 4, Description: "extra bytes", Data: ExtraBytes(descs...)}
}
