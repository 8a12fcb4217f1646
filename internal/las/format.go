package las

import (
	"fmt"
	"slices"
)

// FieldID identifies a standard point field. Extra Bytes fields use FieldExtra.
type FieldID uint8

const (
	FieldExtra FieldID = iota
	FieldX
	FieldY
	FieldZ
	FieldIntensity
	FieldReturnNumber
	FieldNumberOfReturns
	FieldScanDirectionFlag
	FieldEdgeOfFlightLine
	FieldClassificationFlags
	FieldScannerChannel
	FieldClassification
	FieldScanAngleRank
	FieldScanAngle
	FieldUserData
	FieldPointSourceID
	FieldGPSTime
	FieldRed
	FieldGreen
	FieldBlue
	FieldNIR
	FieldWavePacketDescriptorIndex
	FieldByteOffsetToWaveformData
	FieldWaveformPacketSize
	FieldReturnPointWaveformLocation
	FieldParametricDx
	FieldParametricDy
	FieldParametricDz
	fieldIDCount
)

// fieldNames are the column names exposed to downstream consumers.
var fieldNames = [fieldIDCount]string{
	FieldX:                           "X",
	FieldY:                           "Y",
	FieldZ:                           "Z",
	FieldIntensity:                   "intensity",
	FieldReturnNumber:                "returnNumber",
	FieldNumberOfReturns:             "numberOfReturns",
	FieldScanDirectionFlag:           "scanDirectionFlag",
	FieldEdgeOfFlightLine:            "edgeOfFlightLine",
	FieldClassificationFlags:         "classificationFlags",
	FieldScannerChannel:              "scannerChannel",
	FieldClassification:              "classification",
	FieldScanAngleRank:               "scanAngleRank",
	FieldScanAngle:                   "scanAngle",
	FieldUserData:                    "userData",
	FieldPointSourceID:               "pointSourceId",
	FieldGPSTime:                     "gpsTime",
	FieldRed:                         "red",
	FieldGreen:                       "green",
	FieldBlue:                        "blue",
	FieldNIR:                         "nir",
	FieldWavePacketDescriptorIndex:   "wavePacketDescriptorIndex",
	FieldByteOffsetToWaveformData:    "byteOffsetToWaveformData",
	FieldWaveformPacketSize:          "waveformPacketSize",
	FieldReturnPointWaveformLocation: "returnPointWaveformLocation",
	FieldParametricDx:                "parametricDx",
	FieldParametricDy:                "parametricDy",
	FieldParametricDz:                "parametricDz",
}

func (id FieldID) String() string {
	if id < fieldIDCount && fieldNames[id] != "" {
		return fieldNames[id]
	}
	return "extra"
}

// Transform is the linear mapping applied after decode: raw*Scale + Offset.
type Transform struct {
	Scale  float64
	Offset float64
}

// Bits is one named sub-field of a bitfield byte.
type Bits struct {
	ID    FieldID
	Start uint8
	Width uint8
}

// Name returns the column name of the sub-field.
func (b Bits) Name() string { return b.ID.String() }

// Field describes one entry of a point record layout: either a scalar (Bits
// is nil) or a bitfield group packed in the single byte at Offset.
type Field struct {
	ID        FieldID
	Name      string
	Type      DataType
	Offset    int
	Transform *Transform
	Bits      []Bits
}

// IsBitfield reports whether f is a bitfield group.
func (f Field) IsBitfield() bool { return f.Bits != nil }

// End returns the offset one past the last byte of the field.
func (f Field) End() int {
	if f.IsBitfield() {
		return f.Offset + 1
	}
	return f.Offset + f.Type.Size()
}

// PointFormatLayout is the record family a PDRF belongs to.
type PointFormatLayout uint8

const (
	Core0Family PointFormatLayout = iota // PDRF 0-5, 20-byte core
	Core6Family                          // PDRF 6-10, 30-byte core
)

func (l PointFormatLayout) String() string {
	if l == Core6Family {
		return "core6"
	}
	return "core0"
}

// Core and optional block sizes in bytes.
const (
	CORE0_SIZE    = 20
	CORE6_SIZE    = 30
	GPS_TIME_SIZE = 8
	RGB_SIZE      = 6
	NIR_SIZE      = 2
	WAVEFORM_SIZE = 29
	MAX_PDRF      = 10
)

// StandardRecordLength is the official record length of each PDRF, which is
// also where Extra Bytes fields begin.
var StandardRecordLength = [MAX_PDRF + 1]int{20, 28, 26, 34, 57, 63, 30, 36, 38, 59, 67}

func scalar(id FieldID, t DataType, off int) Field {
	return Field{ID: id, Name: id.String(), Type: t, Offset: off}
}

var core0 = []Field{
	scalar(FieldX, TypeInt32, 0),
	scalar(FieldY, TypeInt32, 4),
	scalar(FieldZ, TypeInt32, 8),
	scalar(FieldIntensity, TypeUint16, 12),
	{Type: TypeUint8, Offset: 14, Bits: []Bits{
		{ID: FieldReturnNumber, Start: 0, Width: 3},
		{ID: FieldNumberOfReturns, Start: 3, Width: 3},
		{ID: FieldScanDirectionFlag, Start: 6, Width: 1},
		{ID: FieldEdgeOfFlightLine, Start: 7, Width: 1},
	}},
	scalar(FieldClassification, TypeUint8, 15),
	scalar(FieldScanAngleRank, TypeInt8, 16),
	scalar(FieldUserData, TypeUint8, 17),
	scalar(FieldPointSourceID, TypeUint16, 18),
}

var core6 = []Field{
	scalar(FieldX, TypeInt32, 0),
	scalar(FieldY, TypeInt32, 4),
	scalar(FieldZ, TypeInt32, 8),
	scalar(FieldIntensity, TypeUint16, 12),
	{Type: TypeUint8, Offset: 14, Bits: []Bits{
		{ID: FieldReturnNumber, Start: 0, Width: 4},
		{ID: FieldNumberOfReturns, Start: 4, Width: 4},
	}},
	{Type: TypeUint8, Offset: 15, Bits: []Bits{
		{ID: FieldClassificationFlags, Start: 0, Width: 4},
		{ID: FieldScannerChannel, Start: 4, Width: 2},
		{ID: FieldScanDirectionFlag, Start: 6, Width: 1},
		{ID: FieldEdgeOfFlightLine, Start: 7, Width: 1},
	}},
	scalar(FieldClassification, TypeUint8, 16),
	scalar(FieldUserData, TypeUint8, 17),
	scalar(FieldScanAngle, TypeInt16, 18),
	scalar(FieldPointSourceID, TypeUint16, 20),
	scalar(FieldGPSTime, TypeFloat64, 22),
}

func gpsTime(off int) []Field {
	return []Field{scalar(FieldGPSTime, TypeFloat64, off)}
}

func rgb(off int) []Field {
	return []Field{
		scalar(FieldRed, TypeUint16, off),
		scalar(FieldGreen, TypeUint16, off+2),
		scalar(FieldBlue, TypeUint16, off+4),
	}
}

func nir(off int) []Field {
	return []Field{scalar(FieldNIR, TypeUint16, off)}
}

func waveform(off int) []Field {
	return []Field{
		scalar(FieldWavePacketDescriptorIndex, TypeUint8, off),
		scalar(FieldByteOffsetToWaveformData, TypeUint64, off+1),
		scalar(FieldWaveformPacketSize, TypeUint32, off+9),
		scalar(FieldReturnPointWaveformLocation, TypeFloat32, off+13),
		scalar(FieldParametricDx, TypeFloat32, off+17),
		scalar(FieldParametricDy, TypeFloat32, off+21),
		scalar(FieldParametricDz, TypeFloat32, off+25),
	}
}

func concat(parts ...[]Field) []Field {
	var out []Field
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// formatTables holds the standard layout of every PDRF (LAS 1.4 R15,
// Tables 7-17). Built once at init and never mutated.
var formatTables = [MAX_PDRF + 1][]Field{
	0:  concat(core0),
	1:  concat(core0, gpsTime(20)),
	2:  concat(core0, rgb(20)),
	3:  concat(core0, gpsTime(20), rgb(28)),
	4:  concat(core0, gpsTime(20), waveform(28)),
	5:  concat(core0, gpsTime(20), rgb(28), waveform(34)),
	6:  concat(core6),
	7:  concat(core6, rgb(30)),
	8:  concat(core6, rgb(30), nir(36)),
	9:  concat(core6, waveform(30)),
	10: concat(core6, rgb(30), nir(36), waveform(38)),
}

// FamilyOf returns the record family of a PDRF code.
func FamilyOf(pdrf uint8) (PointFormatLayout, error) {
	if err := checkFormat(pdrf); err != nil {
		return 0, err
	}
	if pdrf >= 6 {
		return Core6Family, nil
	}
	return Core0Family, nil
}

func checkFormat(pdrf uint8) error {
	if pdrf <= MAX_PDRF {
		return nil
	}
	msg := fmt.Sprintf("point data record format %d is not in 0-%d", pdrf, MAX_PDRF)
	if pdrf&0xC0 != 0 && pdrf&0x3F <= MAX_PDRF {
		// LASzip sets the high bits of the format byte on compressed files.
		msg = fmt.Sprintf("point data record format byte 0x%02x marks LAZ-compressed data (format %d)", pdrf, pdrf&0x3F)
	}
	return &FormatError{Op: "format", Offset: OFFSET_PDRF, Msg: msg, Err: ErrUnsupportedFormat}
}

// LayoutFor returns the standard field layout of a PDRF. The returned slice
// and its bitfield groups are copies; callers may not observe each other's
// changes.
func LayoutFor(pdrf uint8) ([]Field, error) {
	if err := checkFormat(pdrf); err != nil {
		return nil, err
	}
	table := formatTables[pdrf]
	out := make([]Field, len(table))
	copy(out, table)
	for i := range out {
		out[i].Bits = slices.Clone(out[i].Bits)
	}
	return out, nil
}

// Span returns max(offset+size) over fields, the minimum record length
// able to hold them.
func Span(fields []Field) int {
	span := 0
	for _, f := range fields {
		span = max(span, f.End())
	}
	return span
}
