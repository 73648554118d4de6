package sigma

import (
	"encoding/binary"
)

// U8 reads the byte at off.
func U8(frame []byte, off int) (uint8, error) {
	if err := checkWidth(frame, off, 1); err != nil {
		return 0, err
	}
	return frame[off], nil
}

// U16 reads a big-endian uint16 at off.
func U16(frame []byte, off int) (uint16, error) {
	if err := checkWidth(frame, off, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(frame[off : off+2]), nil
}

// U32 reads a big-endian uint32 at off.
func U32(frame []byte, off int) (uint32, error) {
	if err := checkWidth(frame, off, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(frame[off : off+4]), nil
}

// PutU16 writes v big-endian at off and returns the next index.
func PutU16(frame []byte, off int, v uint16) int {
	binary.BigEndian.PutUint16(frame[off:off+2], v)
	return off + 2
}

// PutU32 writes v big-endian at off and returns the next index.
func PutU32(frame []byte, off int, v uint32) int {
	binary.BigEndian.PutUint32(frame[off:off+4], v)
	return off + 4
}

// PutU8 writes v at off and returns the next index.
func PutU8(frame []byte, off int, v uint8) int {
	frame[off] = v
	return off + 1
}

func checkWidth(frame []byte, off, width int) error {
	if off < 0 || len(frame)-off < width {
		return &LengthError{Err: ErrMalformedFieldWidth, Expected: off + width, Actual: len(frame)}
	}
	return nil
}
