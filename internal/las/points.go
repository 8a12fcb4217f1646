package las

import "fmt"

// Points holds one column per standard point field. Columns for fields the
// file's PDRF does not define are nil.
type Points struct {
	X, Y, Z   []float64
	Intensity []uint16

	ReturnNumber        []uint8
	NumberOfReturns     []uint8
	ScanDirectionFlag   []uint8
	EdgeOfFlightLine    []uint8
	ClassificationFlags []uint8 // PDRF 6-10
	ScannerChannel      []uint8 // PDRF 6-10

	Classification []uint8
	ScanAngleRank  []int8  // PDRF 0-5
	ScanAngle      []int16 // PDRF 6-10, 0.006 degree units
	UserData       []uint8
	PointSourceID  []uint16
	GPSTime        []float64

	Red, Green, Blue []uint16
	NIR              []uint16

	WavePacketDescriptorIndex   []uint8
	ByteOffsetToWaveformData    []uint64
	WaveformPacketSize          []uint32
	ReturnPointWaveformLocation []float32
	ParametricDx                []float32
	ParametricDy                []float32
	ParametricDz                []float32
}

// get returns the column of a standard field as a typed slice, or nil.
func (p *Points) get(id FieldID) any {
	switch id {
	case FieldX:
		return nilIfEmpty(p.X)
	case FieldY:
		return nilIfEmpty(p.Y)
	case FieldZ:
		return nilIfEmpty(p.Z)
	case FieldIntensity:
		return nilIfEmpty(p.Intensity)
	case FieldReturnNumber:
		return nilIfEmpty(p.ReturnNumber)
	case FieldNumberOfReturns:
		return nilIfEmpty(p.NumberOfReturns)
	case FieldScanDirectionFlag:
		return nilIfEmpty(p.ScanDirectionFlag)
	case FieldEdgeOfFlightLine:
		return nilIfEmpty(p.EdgeOfFlightLine)
	case FieldClassificationFlags:
		return nilIfEmpty(p.ClassificationFlags)
	case FieldScannerChannel:
		return nilIfEmpty(p.ScannerChannel)
	case FieldClassification:
		return nilIfEmpty(p.Classification)
	case FieldScanAngleRank:
		return nilIfEmpty(p.ScanAngleRank)
	case FieldScanAngle:
		return nilIfEmpty(p.ScanAngle)
	case FieldUserData:
		return nilIfEmpty(p.UserData)
	case FieldPointSourceID:
		return nilIfEmpty(p.PointSourceID)
	case FieldGPSTime:
		return nilIfEmpty(p.GPSTime)
	case FieldRed:
		return nilIfEmpty(p.Red)
	case FieldGreen:
		return nilIfEmpty(p.Green)
	case FieldBlue:
		return nilIfEmpty(p.Blue)
	case FieldNIR:
		return nilIfEmpty(p.NIR)
	case FieldWavePacketDescriptorIndex:
		return nilIfEmpty(p.WavePacketDescriptorIndex)
	case FieldByteOffsetToWaveformData:
		return nilIfEmpty(p.ByteOffsetToWaveformData)
	case FieldWaveformPacketSize:
		return nilIfEmpty(p.WaveformPacketSize)
	case FieldReturnPointWaveformLocation:
		return nilIfEmpty(p.ReturnPointWaveformLocation)
	case FieldParametricDx:
		return nilIfEmpty(p.ParametricDx)
	case FieldParametricDy:
		return nilIfEmpty(p.ParametricDy)
	case FieldParametricDz:
		return nilIfEmpty(p.ParametricDz)
	}
	return nil
}

// nilIfEmpty keeps absent columns distinguishable: a nil typed slice stored
// in an interface is not == nil, so absent slots are returned as untyped nil.
func nilIfEmpty[T any](s []T) any {
	if s == nil {
		return nil
	}
	return s
}

// set installs a freshly allocated column. The column type is fixed by the
// format tables; a mismatch is a programming error.
func (p *Points) set(id FieldID, col any) error {
	var ok bool
	switch id {
	case FieldX:
		p.X, ok = col.([]float64)
	case FieldY:
		p.Y, ok = col.([]float64)
	case FieldZ:
		p.Z, ok = col.([]float64)
	case FieldIntensity:
		p.Intensity, ok = col.([]uint16)
	case FieldReturnNumber:
		p.ReturnNumber, ok = col.([]uint8)
	case FieldNumberOfReturns:
		p.NumberOfReturns, ok = col.([]uint8)
	case FieldScanDirectionFlag:
		p.ScanDirectionFlag, ok = col.([]uint8)
	case FieldEdgeOfFlightLine:
		p.EdgeOfFlightLine, ok = col.([]uint8)
	case FieldClassificationFlags:
		p.ClassificationFlags, ok = col.([]uint8)
	case FieldScannerChannel:
		p.ScannerChannel, ok = col.([]uint8)
	case FieldClassification:
		p.Classification, ok = col.([]uint8)
	case FieldScanAngleRank:
		p.ScanAngleRank, ok = col.([]int8)
	case FieldScanAngle:
		p.ScanAngle, ok = col.([]int16)
	case FieldUserData:
		p.UserData, ok = col.([]uint8)
	case FieldPointSourceID:
		p.PointSourceID, ok = col.([]uint16)
	case FieldGPSTime:
		p.GPSTime, ok = col.([]float64)
	case FieldRed:
		p.Red, ok = col.([]uint16)
	case FieldGreen:
		p.Green, ok = col.([]uint16)
	case FieldBlue:
		p.Blue, ok = col.([]uint16)
	case FieldNIR:
		p.NIR, ok = col.([]uint16)
	case FieldWavePacketDescriptorIndex:
		p.WavePacketDescriptorIndex, ok = col.([]uint8)
	case FieldByteOffsetToWaveformData:
		p.ByteOffsetToWaveformData, ok = col.([]uint64)
	case FieldWaveformPacketSize:
		p.WaveformPacketSize, ok = col.([]uint32)
	case FieldReturnPointWaveformLocation:
		p.ReturnPointWaveformLocation, ok = col.([]float32)
	case FieldParametricDx:
		p.ParametricDx, ok = col.([]float32)
	case FieldParametricDy:
		p.ParametricDy, ok = col.([]float32)
	case FieldParametricDz:
		p.ParametricDz, ok = col.([]float32)
	}
	if !ok {
		return fmt.Errorf("las: column %s cannot hold %T", id, col)
	}
	return nil
}

// Column is a named, type-homogeneous column. Data is one of []uint8,
// []int8, []uint16, []int16, []uint32, []int32, []uint64, []float32 or
// []float64, matching Type.
type Column struct {
	Name string
	Type DataType
	Data any
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	switch v := c.Data.(type) {
	case []uint8:
		return len(v)
	case []int8:
		return len(v)
	case []uint16:
		return len(v)
	case []int16:
		return len(v)
	case []uint32:
		return len(v)
	case []int32:
		return len(v)
	case []uint64:
		return len(v)
	case []float32:
		return len(v)
	case []float64:
		return len(v)
	}
	return 0
}

// Float64 returns value i widened to float64.
func (c Column) Float64(i int) float64 {
	switch v := c.Data.(type) {
	case []uint8:
		return float64(v[i])
	case []int8:
		return float64(v[i])
	case []uint16:
		return float64(v[i])
	case []int16:
		return float64(v[i])
	case []uint32:
		return float64(v[i])
	case []int32:
		return float64(v[i])
	case []uint64:
		return float64(v[i])
	case []float32:
		return float64(v[i])
	case []float64:
		return v[i]
	}
	return 0
}

// Number is the set of column element types.
type Number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~float32 | ~float64
}

// Values returns the column data as []T when T matches the column type.
func Values[T Number](c Column) ([]T, bool) {
	v, ok := c.Data.([]T)
	return v, ok
}

// newColumn allocates a zeroed column of n values. Transformed fields always
// decode to float64.
func newColumn(t DataType, transformed bool, n int) any {
	if transformed {
		return make([]float64, n)
	}
	switch t {
	case TypeUint8:
		return make([]uint8, n)
	case TypeInt8:
		return make([]int8, n)
	case TypeUint16:
		return make([]uint16, n)
	case TypeInt16:
		return make([]int16, n)
	case TypeUint32:
		return make([]uint32, n)
	case TypeInt32:
		return make([]int32, n)
	case TypeUint64:
		return make([]uint64, n)
	case TypeFloat32:
		return make([]float32, n)
	case TypeFloat64:
		return make([]float64, n)
	}
	return nil
}

// columnType reports the element type a field decodes to.
func columnType(f Field) DataType {
	if f.Transform != nil {
		return TypeFloat64
	}
	return f.Type
}
