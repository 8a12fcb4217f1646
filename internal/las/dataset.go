package las

// Dataset is the result of a decode call. It owns nothing mutable that is
// shared with other calls; record payloads alias the input buffer.
type Dataset struct {
	Header      Header
	VLRs        []Record
	EVLRs       []Record
	Layout      *Layout
	ExtraFields []ExtraField
	Points      Points
	Extra       []Column // one per ExtraFields entry, same order
	Skipped     []DataTypeError
}

var fieldByName = func() map[string]FieldID {
	m := make(map[string]FieldID, fieldIDCount)
	for id := FieldID(1); id < fieldIDCount; id++ {
		m[fieldNames[id]] = id
	}
	return m
}()

// Len returns the number of points.
func (d *Dataset) Len() int { return int(d.Header.NumberOfPoints) }

// Column looks up a column by name. Standard field names take precedence
// over Extra Bytes fields; among extra fields the first declared wins.
func (d *Dataset) Column(name string) (Column, bool) {
	if id, ok := fieldByName[name]; ok {
		if data := d.Points.get(id); data != nil {
			return Column{Name: name, Type: standardColumnType(d.Layout, id), Data: data}, true
		}
	}
	for _, c := range d.Extra {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames lists present columns in layout order, bitfield sub-fields
// in bit order, extra fields last.
func (d *Dataset) ColumnNames() []string {
	var names []string
	if d.Layout != nil {
		for _, f := range d.Layout.Fields {
			if f.IsBitfield() {
				for _, b := range f.Bits {
					names = append(names, b.Name())
				}
				continue
			}
			names = append(names, f.Name)
		}
	}
	for _, c := range d.Extra {
		names = append(names, c.Name)
	}
	return names
}

func standardColumnType(l *Layout, id FieldID) DataType {
	if l == nil {
		return TypeInvalid
	}
	for _, f := range l.Fields {
		if f.ID == id {
			return columnType(f)
		}
		for _, b := range f.Bits {
			if b.ID == id {
				return TypeUint8
			}
		}
	}
	return TypeInvalid
}
