package sigma

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBuffer         = errors.New("sigma: empty buffer")
	ErrShortReadHeader     = errors.New("sigma: buffer too short for read header")
	ErrShortWriteHeader    = errors.New("sigma: buffer too short for write header")
	ErrShortPayload        = errors.New("sigma: buffer too short for write payload")
	ErrShortResponse       = errors.New("sigma: buffer too short for response")
	ErrMalformedFieldWidth = errors.New("sigma: field wider than source slice")
	ErrUnexpectedTag       = errors.New("sigma: unexpected control bit")
)

// LengthError carries the expected and actual buffer length of a failed parse.
type LengthError struct {
	Err      error
	Expected int
	Actual   int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%v: expected %d bytes, got %d", e.Err, e.Expected, e.Actual)
}

func (e *LengthError) Unwrap() error {
	return e.Err
}

// IsShortBuffer reports whether err means the frame is not complete yet, so that
// more bytes from the stream could still turn it into a valid frame.
func IsShortBuffer(err error) bool {
	return errors.Is(err, ErrShortReadHeader) ||
		errors.Is(err, ErrShortWriteHeader) ||
		errors.Is(err, ErrShortPayload) ||
		errors.Is(err, ErrShortResponse)
}
