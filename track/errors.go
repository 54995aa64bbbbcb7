package track

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownFormat      = errors.New("unknown format tag")
	ErrUnknownSegmentType = errors.New("unknown segment type")
	ErrBadMagic           = errors.New("unexpected file header")
	ErrSegmentMismatch    = errors.New("paired segments have different types")
	ErrUnexpectedValue    = errors.New("unexpected value")
	ErrOffsetMismatch     = errors.New("unexpected segment offset")
)

// FormatError is a fatal decode error. It names the device generation, the
// record being decoded and the offending raw value.
type FormatError struct {
	Generation string
	Record     string
	Kind       error
	Value      uint64
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v 0x%04x", e.Generation, e.Record, e.Kind, e.Value)
	if errors.Is(e.Kind, ErrUnknownFormat) || errors.Is(e.Kind, ErrUnknownSegmentType) {
		msg += " (a sample of this recording is needed to extend the decoder table)"
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Kind }
