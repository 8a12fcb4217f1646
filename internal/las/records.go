package las

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Variable Length Record header layout. EVLRs share the field positions but
// carry a u64 payload length, which pushes the payload to +60.
const (
	RECORD_OFFSET_USER_ID     = 2  // 16 chars, NUL padded
	RECORD_OFFSET_RECORD_ID   = 18 // u16
	RECORD_OFFSET_LENGTH      = 20 // u16 (VLR) or u64 (EVLR)
	VLR_OFFSET_DESCRIPTION    = 22 // 32 chars
	EVLR_OFFSET_DESCRIPTION   = 28 // 32 chars
	VLR_HEADER_SIZE           = 54
	EVLR_HEADER_SIZE          = 60
	USER_ID_SIZE              = 16
	DESCRIPTION_SIZE          = 32
	EXTRA_BYTES_USER_ID       = "LASF_Spec"
	EXTRA_BYTES_RECORD_ID     = 4
	EXTRA_BYTES_DESCRIPTOR_SZ = 192
)

// Record is a VLR or EVLR. Data aliases the decode input buffer and must be
// treated as read-only.
type Record struct {
	UserID      string
	RecordID    uint16
	Description string
	Data        []byte
	Extended    bool  // true for EVLRs
	Offset      int64 // absolute offset of the record header
}

// ReadRecords walks the VLR chain (starting at HeaderSize) and the EVLR chain
// (starting at EVLROffset). Counts and lengths come from the file and are not
// trusted: every cursor is bounds-checked against the buffer.
func ReadRecords(buf []byte, h *Header) (vlrs, evlrs []Record, err error) {
	vlrs, end, err := readChain(buf, int64(h.HeaderSize), int64(h.NumberOfVLRs), false)
	if err != nil {
		return nil, nil, err
	}
	if h.NumberOfVLRs > 0 && end > int64(h.OffsetToPointData) {
		return nil, nil, &FormatError{
			Op:     "vlr",
			Offset: end,
			Need:   end,
			Have:   int64(h.OffsetToPointData),
			Msg:    "variable length records overrun the start of point data",
			Err:    ErrMalformedRecord,
		}
	}

	if h.NumberOfEVLRs > 0 {
		if h.EVLROffset > math.MaxInt64 {
			return nil, nil, truncated("evlr", -1, 0, int64(len(buf)), fmt.Sprintf("EVLR offset %d", h.EVLROffset))
		}
		evlrs, _, err = readChain(buf, int64(h.EVLROffset), int64(h.NumberOfEVLRs), true)
		if err != nil {
			return nil, nil, err
		}
	}
	return vlrs, evlrs, nil
}

// readChain reads count records starting at cursor and returns them with the
// cursor position after the last record.
func readChain(buf []byte, cursor, count int64, extended bool) ([]Record, int64, error) {
	op, headerSize := "vlr", int64(VLR_HEADER_SIZE)
	if extended {
		op, headerSize = "evlr", int64(EVLR_HEADER_SIZE)
	}
	size := int64(len(buf))

	// Every record needs at least its header, so a count larger than the
	// remaining bytes allow is corrupt; checking up front also bounds the
	// slice capacity below.
	if cursor > size || count > (size-cursor)/headerSize {
		return nil, cursor, &FormatError{
			Op:     op,
			Offset: cursor,
			Need:   count * headerSize,
			Have:   max(size-cursor, 0),
			Msg:    fmt.Sprintf("%d record headers extend past end of buffer", count),
			Err:    ErrTruncated,
		}
	}

	records := make([]Record, 0, count)
	for i := int64(0); i < count; i++ {
		if cursor+headerSize > size {
			return nil, cursor, truncated(op, cursor, headerSize, size-cursor, fmt.Sprintf("record %d header", i))
		}
		rec := buf[cursor : cursor+headerSize]

		var length uint64
		var description []byte
		if extended {
			length = binary.LittleEndian.Uint64(rec[RECORD_OFFSET_LENGTH:])
			description = rec[EVLR_OFFSET_DESCRIPTION : EVLR_OFFSET_DESCRIPTION+DESCRIPTION_SIZE]
		} else {
			length = uint64(binary.LittleEndian.Uint16(rec[RECORD_OFFSET_LENGTH:]))
			description = rec[VLR_OFFSET_DESCRIPTION : VLR_OFFSET_DESCRIPTION+DESCRIPTION_SIZE]
		}

		payloadStart := cursor + headerSize
		if length > uint64(size-payloadStart) {
			return nil, cursor, &FormatError{
				Op:     op,
				Offset: payloadStart,
				Need:   clampInt64(length),
				Have:   size - payloadStart,
				Msg:    fmt.Sprintf("record %d payload extends past end of buffer", i),
				Err:    ErrTruncated,
			}
		}
		payloadEnd := payloadStart + int64(length)

		records = append(records, Record{
			UserID:      trimNUL(rec[RECORD_OFFSET_USER_ID : RECORD_OFFSET_USER_ID+USER_ID_SIZE]),
			RecordID:    binary.LittleEndian.Uint16(rec[RECORD_OFFSET_RECORD_ID:]),
			Description: trimNUL(description),
			Data:        buf[payloadStart:payloadEnd:payloadEnd],
			Extended:    extended,
			Offset:      cursor,
		})
		cursor = payloadEnd
	}
	return records, cursor, nil
}

// FindRecord returns the first record matching userID and recordID.
func FindRecord(records []Record, userID string, recordID uint16) (Record, bool) {
	for _, r := range records {
		if r.UserID == userID && r.RecordID == recordID {
			return r, true
		}
	}
	return Record{}, false
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
