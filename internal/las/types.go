package las

import (
	"encoding/binary"
	"math"
)

// DataType is the primitive numeric type of a point field.
type DataType uint8

const (
	TypeInvalid DataType = iota
	TypeUint8
	TypeInt8
	TypeUint16
	TypeInt16
	TypeUint32
	TypeInt32
	TypeUint64
	TypeFloat32
	TypeFloat64
)

var dataTypeNames = [...]string{
	TypeInvalid: "invalid",
	TypeUint8:   "uint8",
	TypeInt8:    "int8",
	TypeUint16:  "uint16",
	TypeInt16:   "int16",
	TypeUint32:  "uint32",
	TypeInt32:   "int32",
	TypeUint64:  "uint64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return "invalid"
}

// Size returns the encoded width in bytes, 0 for TypeInvalid.
func (t DataType) Size() int {
	switch t {
	case TypeUint8, TypeInt8:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeInt32, TypeFloat32:
		return 4
	case TypeUint64, TypeFloat64:
		return 8
	}
	return 0
}

// extraBytesTypes maps Extra Bytes descriptor type codes to primitive types.
// Codes not listed (0 = undocumented bytes, 7/8 and the deprecated array
// codes) are skipped.
var extraBytesTypes = map[uint8]DataType{
	1:  TypeUint8,
	2:  TypeInt8,
	3:  TypeUint16,
	4:  TypeInt16,
	5:  TypeUint32,
	6:  TypeInt32,
	9:  TypeFloat32,
	10: TypeFloat64,
}

// ExtraBytesType resolves an Extra Bytes data type code.
func ExtraBytesType(code uint8) (DataType, bool) {
	t, ok := extraBytesTypes[code]
	return t, ok
}

// readFloat reads a value of type t from b (little-endian) widened to
// float64. b must hold at least t.Size() bytes.
func readFloat(t DataType, b []byte) float64 {
	switch t {
	case TypeUint8:
		return float64(b[0])
	case TypeInt8:
		return float64(int8(b[0]))
	case TypeUint16:
		return float64(binary.LittleEndian.Uint16(b))
	case TypeInt16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case TypeUint32:
		return float64(binary.LittleEndian.Uint32(b))
	case TypeInt32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case TypeUint64:
		return float64(binary.LittleEndian.Uint64(b))
	case TypeFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case TypeFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}
