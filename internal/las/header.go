package las

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
)

// Public Header Block layout constants. Offsets are absolute from the start
// of the buffer. The EVLR start and count are read at 233 and 241, two bytes
// earlier than LAS 1.4 R15 Table 3 places them, so the EVLR start overlaps
// the last bytes of the waveform start field.
const (
	SIGNATURE              = "LASF" // File signature, 4 ASCII bytes at offset 0
	HEADER_SIZE_MIN        = 227    // LAS 1.0-1.2 header size; smallest header this reader accepts
	HEADER_SIZE_14         = 375    // LAS 1.4 header size
	OFFSET_FILE_SOURCE_ID  = 4      // u16
	OFFSET_GLOBAL_ENCODING = 6      // u16
	OFFSET_PROJECT_ID      = 8      // 16-byte GUID
	OFFSET_VERSION_MAJOR   = 24     // u8
	OFFSET_VERSION_MINOR   = 25     // u8
	OFFSET_SYSTEM_ID       = 26     // 32 chars
	OFFSET_SOFTWARE        = 58     // 32 chars
	OFFSET_CREATION_DAY    = 90     // u16
	OFFSET_CREATION_YEAR   = 92     // u16
	OFFSET_HEADER_SIZE     = 94     // u16
	OFFSET_POINT_DATA      = 96     // u32
	OFFSET_VLR_COUNT       = 100    // u32
	OFFSET_PDRF            = 104    // u8
	OFFSET_RECORD_LENGTH   = 105    // u16
	OFFSET_LEGACY_COUNT    = 107    // u32
	OFFSET_LEGACY_BY_RET   = 111    // 5 × u32
	OFFSET_X_SCALE         = 131    // f64
	OFFSET_Y_SCALE         = 139    // f64
	OFFSET_Z_SCALE         = 147    // f64
	OFFSET_X_OFFSET        = 155    // f64
	OFFSET_Y_OFFSET        = 163    // f64
	OFFSET_Z_OFFSET        = 171    // f64
	OFFSET_MAX_X           = 179    // f64, followed by MinX, MaxY, MinY, MaxZ, MinZ
	OFFSET_WAVEFORM_START  = 227    // u64 (LAS 1.3+)
	OFFSET_EVLR_START      = 233    // u64 (LAS 1.4)
	OFFSET_EVLR_COUNT      = 241    // u32 (LAS 1.4)
	OFFSET_EXTENDED_COUNT  = 247    // u64 (LAS 1.4)
	OFFSET_EXTENDED_BY_RET = 255    // 15 × u64 (LAS 1.4)

	LEGACY_RETURN_SLOTS   = 5
	EXTENDED_RETURN_SLOTS = 15
)

// Header is the decoded Public Header Block.
type Header struct {
	FileSourceID       uint16
	GlobalEncoding     uint16
	ProjectID          [16]byte
	VersionMajor       uint8
	VersionMinor       uint8
	SystemIdentifier   string
	GeneratingSoftware string
	FileCreationDay    uint16
	FileCreationYear   uint16

	HeaderSize            uint16
	OffsetToPointData     uint32
	NumberOfVLRs          uint32
	PointDataFormat       uint8
	PointDataRecordLength uint16

	LegacyPointCount     uint32
	LegacyPointsByReturn [LEGACY_RETURN_SLOTS]uint32

	XScaleFactor float64
	YScaleFactor float64
	ZScaleFactor float64
	XOffset      float64
	YOffset      float64
	ZOffset      float64

	MaxX, MinX float64
	MaxY, MinY float64
	MaxZ, MinZ float64

	StartOfWaveformData uint64
	EVLROffset          uint64
	NumberOfEVLRs       uint32
	ExtendedPointCount  uint64
	PointsByReturn      [EXTENDED_RETURN_SLOTS]uint64

	// NumberOfPoints is the resolved point count, see ResolvePointCount.
	NumberOfPoints uint64
}

// ResolvePointCount applies the LAS 1.4 backward-compatibility rule: formats
// 0-5 may carry the count in the legacy 32-bit field, formats 6 and up always
// use the 64-bit field.
func ResolvePointCount(legacy uint32, pdrf uint8, extended uint64) uint64 {
	if legacy > 0 && pdrf < 6 {
		return uint64(legacy)
	}
	return extended
}

// headerReader reads fixed-offset fields. Fields that sit beyond the declared
// header size (pre-1.4 headers) read as zero so VLR bytes are never mistaken
// for header fields.
type headerReader struct {
	buf  []byte
	size int
}

func (r headerReader) has(off, width int) bool { return off+width <= r.size }

func (r headerReader) u8(off int) uint8 {
	if !r.has(off, 1) {
		return 0
	}
	return r.buf[off]
}

func (r headerReader) u16(off int) uint16 {
	if !r.has(off, 2) {
		return 0
	}
	return binary.LittleEndian.Uint16(r.buf[off:])
}

func (r headerReader) u32(off int) uint32 {
	if !r.has(off, 4) {
		return 0
	}
	return binary.LittleEndian.Uint32(r.buf[off:])
}

func (r headerReader) u64(off int) uint64 {
	if !r.has(off, 8) {
		return 0
	}
	return binary.LittleEndian.Uint64(r.buf[off:])
}

func (r headerReader) f64(off int) float64 {
	return math.Float64frombits(r.u64(off))
}

func (r headerReader) str(off, width int) string {
	if !r.has(off, width) {
		return ""
	}
	return trimNUL(r.buf[off : off+width])
}

// trimNUL strips trailing NUL padding from a fixed-width string field.
func trimNUL(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}

// ReadHeader validates the signature and decodes the Public Header Block.
func ReadHeader(buf []byte) (*Header, error) {
	if len(buf) < len(SIGNATURE) {
		return nil, truncated("header", 0, int64(len(SIGNATURE)), int64(len(buf)), "file signature")
	}
	if sig := string(buf[:len(SIGNATURE)]); sig != SIGNATURE {
		return nil, &FormatError{
			Op:     "header",
			Offset: 0,
			Msg:    "expected signature \"LASF\", found " + strconv.Quote(sig),
			Err:    ErrSignature,
		}
	}
	if len(buf) < HEADER_SIZE_MIN {
		return nil, truncated("header", 0, HEADER_SIZE_MIN, int64(len(buf)), "public header block")
	}

	headerSize := int(binary.LittleEndian.Uint16(buf[OFFSET_HEADER_SIZE:]))
	if headerSize < HEADER_SIZE_MIN {
		return nil, &FormatError{
			Op:     "header",
			Offset: OFFSET_HEADER_SIZE,
			Need:   HEADER_SIZE_MIN,
			Have:   int64(headerSize),
			Msg:    "declared header size is smaller than the minimum public header",
			Err:    ErrMalformedRecord,
		}
	}
	if headerSize > len(buf) {
		return nil, truncated("header", 0, int64(headerSize), int64(len(buf)), "declared header size")
	}

	r := headerReader{buf: buf, size: headerSize}
	h := &Header{
		FileSourceID:          r.u16(OFFSET_FILE_SOURCE_ID),
		GlobalEncoding:        r.u16(OFFSET_GLOBAL_ENCODING),
		VersionMajor:          r.u8(OFFSET_VERSION_MAJOR),
		VersionMinor:          r.u8(OFFSET_VERSION_MINOR),
		SystemIdentifier:      r.str(OFFSET_SYSTEM_ID, 32),
		GeneratingSoftware:    r.str(OFFSET_SOFTWARE, 32),
		FileCreationDay:       r.u16(OFFSET_CREATION_DAY),
		FileCreationYear:      r.u16(OFFSET_CREATION_YEAR),
		HeaderSize:            uint16(headerSize),
		OffsetToPointData:     r.u32(OFFSET_POINT_DATA),
		NumberOfVLRs:          r.u32(OFFSET_VLR_COUNT),
		PointDataFormat:       r.u8(OFFSET_PDRF),
		PointDataRecordLength: r.u16(OFFSET_RECORD_LENGTH),
		LegacyPointCount:      r.u32(OFFSET_LEGACY_COUNT),
		XScaleFactor:          r.f64(OFFSET_X_SCALE),
		YScaleFactor:          r.f64(OFFSET_Y_SCALE),
		ZScaleFactor:          r.f64(OFFSET_Z_SCALE),
		XOffset:               r.f64(OFFSET_X_OFFSET),
		YOffset:               r.f64(OFFSET_Y_OFFSET),
		ZOffset:               r.f64(OFFSET_Z_OFFSET),
		MaxX:                  r.f64(OFFSET_MAX_X),
		MinX:                  r.f64(OFFSET_MAX_X + 8),
		MaxY:                  r.f64(OFFSET_MAX_X + 16),
		MinY:                  r.f64(OFFSET_MAX_X + 24),
		MaxZ:                  r.f64(OFFSET_MAX_X + 32),
		MinZ:                  r.f64(OFFSET_MAX_X + 40),
		StartOfWaveformData:   r.u64(OFFSET_WAVEFORM_START),
		EVLROffset:            r.u64(OFFSET_EVLR_START),
		NumberOfEVLRs:         r.u32(OFFSET_EVLR_COUNT),
		ExtendedPointCount:    r.u64(OFFSET_EXTENDED_COUNT),
	}
	copy(h.ProjectID[:], buf[OFFSET_PROJECT_ID:OFFSET_PROJECT_ID+16])
	for i := range h.LegacyPointsByReturn {
		h.LegacyPointsByReturn[i] = r.u32(OFFSET_LEGACY_BY_RET + 4*i)
	}
	for i := range h.PointsByReturn {
		h.PointsByReturn[i] = r.u64(OFFSET_EXTENDED_BY_RET + 8*i)
	}

	h.NumberOfPoints = ResolvePointCount(h.LegacyPointCount, h.PointDataFormat, h.ExtendedPointCount)
	return h, nil
}
