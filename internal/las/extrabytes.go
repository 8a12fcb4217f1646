package las

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Extra Bytes descriptor layout (LAS 1.4 R15, Table 24). Offsets are relative
// to the start of each 192-byte descriptor.
const (
	EB_OFFSET_DATA_TYPE   = 2
	EB_OFFSET_OPTIONS     = 3
	EB_OFFSET_NAME        = 4
	EB_NAME_SIZE          = 32
	EB_OFFSET_SCALE       = 112 // 3 × f64, first slot used for scalar fields
	EB_OFFSET_OFFSET      = 136 // 3 × f64
	EB_OFFSET_DESCRIPTION = 160
	EB_DESCRIPTION_SIZE   = 32

	EB_OPTION_SCALE  = 1 << 3
	EB_OPTION_OFFSET = 1 << 4
)

// ExtraField is an Extra Bytes field resolved from its descriptor.
type ExtraField struct {
	Name        string
	Type        DataType
	Offset      int // byte offset inside the point record
	Index       int // descriptor index inside the Extra Bytes payload
	Description string
	Transform   *Transform // non-nil when the descriptor declares scale or offset
}

// Field returns the layout entry of the extra field.
func (e ExtraField) Field() Field {
	return Field{ID: FieldExtra, Name: e.Name, Type: e.Type, Offset: e.Offset, Transform: e.Transform}
}

// ParseExtraBytes interprets an Extra Bytes payload. Recognised descriptors
// become fields packed back to back starting at base, in declaration order.
// Descriptors with an empty name or an unsupported type code are skipped and
// reported; they do not occupy bytes in the record.
func ParseExtraBytes(payload []byte, base int) ([]ExtraField, []DataTypeError) {
	var fields []ExtraField
	var skipped []DataTypeError

	offset := base
	n := len(payload) / EXTRA_BYTES_DESCRIPTOR_SZ
	for i := 0; i < n; i++ {
		d := payload[i*EXTRA_BYTES_DESCRIPTOR_SZ : (i+1)*EXTRA_BYTES_DESCRIPTOR_SZ]
		code := d[EB_OFFSET_DATA_TYPE]
		name := cString(d[EB_OFFSET_NAME : EB_OFFSET_NAME+EB_NAME_SIZE])

		t, ok := ExtraBytesType(code)
		if !ok {
			skipped = append(skipped, DataTypeError{Index: i, Code: code, Name: name, Reason: "unsupported data type code"})
			continue
		}
		if strings.TrimSpace(name) == "" {
			skipped = append(skipped, DataTypeError{Index: i, Code: code, Name: name, Reason: "empty name"})
			continue
		}

		f := ExtraField{
			Name:        name,
			Type:        t,
			Offset:      offset,
			Index:       i,
			Description: cString(d[EB_OFFSET_DESCRIPTION : EB_OFFSET_DESCRIPTION+EB_DESCRIPTION_SIZE]),
		}
		if opts := d[EB_OFFSET_OPTIONS]; opts&(EB_OPTION_SCALE|EB_OPTION_OFFSET) != 0 {
			tr := Transform{Scale: 1}
			if opts&EB_OPTION_SCALE != 0 {
				tr.Scale = math.Float64frombits(binary.LittleEndian.Uint64(d[EB_OFFSET_SCALE:]))
			}
			if opts&EB_OPTION_OFFSET != 0 {
				tr.Offset = math.Float64frombits(binary.LittleEndian.Uint64(d[EB_OFFSET_OFFSET:]))
			}
			f.Transform = &tr
		}
		fields = append(fields, f)
		offset += t.Size()
	}

	if rem := len(payload) % EXTRA_BYTES_DESCRIPTOR_SZ; rem != 0 {
		skipped = append(skipped, DataTypeError{
			Index:  n,
			Reason: fmt.Sprintf("trailing %d bytes are not a whole %d-byte descriptor", rem, EXTRA_BYTES_DESCRIPTOR_SZ),
		})
	}
	return fields, skipped
}

// cString returns b up to its first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
