package sigma

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_BigEndian(t *testing.T) {
	frame := []byte{0x12, 0x34, 0x56, 0x78, 0x9a}

	v8, err := U8(frame, 4)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x9a), v8)

	v16, err := U16(frame, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3456), v16)

	v32, err := U32(frame, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v32)

	v32, err = U32(frame, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3456789a), v32)
}

func TestField_Width(t *testing.T) {
	frame := []byte{0x01, 0x02, 0x03}

	_, err := U32(frame, 0)
	assert.ErrorIs(t, err, ErrMalformedFieldWidth)
	_, err = U16(frame, 2)
	assert.ErrorIs(t, err, ErrMalformedFieldWidth)
	_, err = U8(frame, 3)
	assert.ErrorIs(t, err, ErrMalformedFieldWidth)
	_, err = U8(frame, -1)
	assert.ErrorIs(t, err, ErrMalformedFieldWidth)
	_, err = U8(nil, 0)
	assert.ErrorIs(t, err, ErrMalformedFieldWidth)

	var le *LengthError
	_, err = U32(frame, 1)
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 5, le.Expected)
	assert.Equal(t, 3, le.Actual)
	assert.Equal(t, "sigma: field wider than source slice: expected 5 bytes, got 3", err.Error())
	assert.False(t, IsShortBuffer(err))
}

func TestField_Put(t *testing.T) {
	frame := make([]byte, 7)
	index := PutU8(frame, 0, 0x0a)
	index = PutU32(frame, index, 0x0000000e)
	index = PutU16(frame, index, 0xf6fb)
	assert.Equal(t, 7, index)
	assert.Equal(t, []byte{0x0a, 0x00, 0x00, 0x00, 0x0e, 0xf6, 0xfb}, frame)
}
