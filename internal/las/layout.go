package las

import "fmt"

// Layout is the resolved record layout of a file: the standard PDRF fields
// with coordinate transforms applied, followed by any Extra Bytes fields.
type Layout struct {
	Format       uint8
	Family       PointFormatLayout
	Fields       []Field
	Extra        []ExtraField
	RecordLength int
}

// All returns the standard fields followed by the extra fields.
func (l *Layout) All() []Field {
	all := make([]Field, 0, len(l.Fields)+len(l.Extra))
	all = append(all, l.Fields...)
	for _, e := range l.Extra {
		all = append(all, e.Field())
	}
	return all
}

// Span returns the minimum record length able to hold every field.
func (l *Layout) Span() int {
	return Span(l.All())
}

// ResolveLayout builds the layout for the header's PDRF. The Extra Bytes
// record is looked up in the VLRs first, then the EVLRs. Records are only
// read, never modified.
func ResolveLayout(h *Header, vlrs, evlrs []Record) (*Layout, []DataTypeError, error) {
	fields, err := LayoutFor(h.PointDataFormat)
	if err != nil {
		return nil, nil, err
	}
	family, _ := FamilyOf(h.PointDataFormat)

	for i := range fields {
		switch fields[i].ID {
		case FieldX:
			fields[i].Transform = &Transform{Scale: h.XScaleFactor, Offset: h.XOffset}
		case FieldY:
			fields[i].Transform = &Transform{Scale: h.YScaleFactor, Offset: h.YOffset}
		case FieldZ:
			fields[i].Transform = &Transform{Scale: h.ZScaleFactor, Offset: h.ZOffset}
		}
	}

	layout := &Layout{
		Format:       h.PointDataFormat,
		Family:       family,
		Fields:       fields,
		RecordLength: int(h.PointDataRecordLength),
	}

	var skipped []DataTypeError
	eb, ok := FindRecord(vlrs, EXTRA_BYTES_USER_ID, EXTRA_BYTES_RECORD_ID)
	if !ok {
		eb, ok = FindRecord(evlrs, EXTRA_BYTES_USER_ID, EXTRA_BYTES_RECORD_ID)
	}
	if ok {
		layout.Extra, skipped = ParseExtraBytes(eb.Data, StandardRecordLength[h.PointDataFormat])
	}

	if span := layout.Span(); span > layout.RecordLength {
		return nil, nil, &FormatError{
			Op:     "format",
			Offset: OFFSET_RECORD_LENGTH,
			Need:   int64(span),
			Have:   int64(layout.RecordLength),
			Msg:    fmt.Sprintf("point record length is shorter than the span of format %d fields (%d extra)", h.PointDataFormat, len(layout.Extra)),
			Err:    ErrLayout,
		}
	}
	return layout, skipped, nil
}
