package las

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by FormatError. Use errors.Is to test for them.
var (
	ErrSignature         = errors.New("las: invalid file signature")
	ErrUnsupportedFormat = errors.New("las: unsupported point data record format")
	ErrTruncated         = errors.New("las: buffer truncated")
	ErrMalformedRecord   = errors.New("las: malformed variable length record chain")
	ErrLayout            = errors.New("las: point record layout mismatch")
)

// FormatError is a fatal decode failure. It carries the byte offset where the
// problem was found and, for bounds failures, how many bytes were needed
// versus available.
type FormatError struct {
	Op     string // decode stage: "header", "vlr", "evlr", "format", "points"
	Offset int64  // absolute byte offset into the buffer, -1 if not applicable
	Need   int64  // bytes (or value) expected
	Have   int64  // bytes (or value) found
	Msg    string
	Err    error // sentinel cause
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("las %s: %s", e.Op, e.Msg)
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Need != 0 || e.Have != 0 {
		msg += fmt.Sprintf(" (need %d, have %d)", e.Need, e.Have)
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// truncated builds the common "read past end of buffer" error.
func truncated(op string, offset, need, have int64, what string) *FormatError {
	return &FormatError{
		Op:     op,
		Offset: offset,
		Need:   need,
		Have:   have,
		Msg:    what + " extends past end of buffer",
		Err:    ErrTruncated,
	}
}

// DataTypeError describes an Extra Bytes descriptor that was skipped. It is
// recoverable: the decode continues without the field.
type DataTypeError struct {
	Index  int    // descriptor index inside the Extra Bytes payload
	Code   uint8  // raw data type code
	Name   string // descriptor name, may be empty
	Reason string
}

func (e DataTypeError) Error() string {
	return fmt.Sprintf("las extra bytes: descriptor %d (%q, type %d) skipped: %s", e.Index, e.Name, e.Code, e.Reason)
}
