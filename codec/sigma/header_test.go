package sigma

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadResponse_Encode(t *testing.T) {
	resp := NewReadResponse(1, 2, 0xf6fb, []byte{0x00, 0x08})
	frame := resp.Encode()
	t.Logf("%s", resp)

	assert.Equal(t, []byte{
		0x0b,                   // CmdResp
		0x00, 0x00, 0x00, 0x0f, // total_len = 13 + 2
		0x01,                   // chip_addr
		0x00, 0x00, 0x00, 0x02, // data_len
		0xf6, 0xfb, // param_addr
		0x00,       // success
		0x00,       // reserved
		0x00, 0x08, // payload
	}, frame)
}

func TestReadResponse_EncodeDataLen4(t *testing.T) {
	// data_len == 4 时 total_len 比实际多 1
	frame := NewReadResponse(1, 4, 0x0010, []byte{1, 2, 3, 4}).Encode()
	assert.Len(t, frame, 18)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x12}, frame[1:5])
	assert.Equal(t, []byte{1, 2, 3, 4}, frame[RespHeadLength:])
}

func TestReadResponse_TotalLengthFromPayload(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 5, 8, 80, 300} {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i)
		}
		resp := NewReadResponse(3, uint32(n), 0x1234, payload)
		// 篡改 header 的 total_len 也不影响编码结果
		resp.Header.TotalLength = 9999
		frame := resp.Encode()

		require.Len(t, frame, RespHeadLength+n)
		assert.Equal(t, CmdResp, frame[0])
		assert.Equal(t, uint32(RespFixedLength+n), binary.BigEndian.Uint32(frame[1:5]))
		assert.Equal(t, uint8(3), frame[5])
		assert.Equal(t, uint32(n), binary.BigEndian.Uint32(frame[6:10]))
		assert.Equal(t, uint16(0x1234), binary.BigEndian.Uint16(frame[10:12]))
		assert.Equal(t, uint8(0), frame[12])
		assert.Equal(t, payload, frame[RespHeadLength:])
	}
}

func TestReadCommand_ToResponse(t *testing.T) {
	cmd, _, err := ParseCommand(NewReadRequest(1, 0xf6fb, 2).Encode())
	require.NoError(t, err)
	resp := cmd.(*ReadCommand).ToResponse([]byte{0xab, 0xcd})
	assert.Equal(t, uint8(1), resp.Header.ChipAddr)
	assert.Equal(t, uint32(2), resp.Header.DataLen)
	assert.Equal(t, uint16(0xf6fb), resp.Header.ParamAddr)
	assert.Equal(t, uint8(0), resp.Header.Success)
	assert.Equal(t, []byte{0xab, 0xcd}, resp.Payload)
}

func TestWriteAndErrorResponse_Encode(t *testing.T) {
	cmd := NewWriteRequest(1, 0xf020, 0, 0, []byte{0x00, 0x08})
	assert.Empty(t, cmd.ToResponse().Encode())
	assert.NotNil(t, cmd.ToResponse().Encode())

	e := NewErrorResponse("device closed")
	assert.Empty(t, e.Encode())
	assert.Contains(t, e.String(), "device closed")
}

type respRecorder struct{ visited []string }

func (r *respRecorder) VisitRead(*ReadResponse)   { r.visited = append(r.visited, "read") }
func (r *respRecorder) VisitWrite(*WriteResponse) { r.visited = append(r.visited, "write") }
func (r *respRecorder) VisitError(*ErrorResponse) { r.visited = append(r.visited, "error") }

func TestResponse_Accept(t *testing.T) {
	rec := &respRecorder{}
	for _, r := range []Response{NewReadResponse(1, 0, 0, nil), NewWriteResponse(), NewErrorResponse("x")} {
		r.Accept(rec)
	}
	assert.Equal(t, []string{"read", "write", "error"}, rec.visited)
}

func TestDecodeResponse(t *testing.T) {
	for _, n := range []int{0, 2, 4, 7} {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(0xa0 + i)
		}
		frame := NewReadResponse(1, uint32(n), 0xf6fb, payload).Encode()
		frame = append(frame, 0x0b, 0x00) // 下一帧的开头

		resp, consumed, err := DecodeResponse(frame)
		require.NoError(t, err)
		assert.Equal(t, RespHeadLength+n, consumed)
		assert.Equal(t, payload, resp.Payload)
		assert.Equal(t, uint32(RespFixedLength+n), resp.Header.TotalLength)
		assert.Equal(t, uint16(0xf6fb), resp.Header.ParamAddr)
	}
}

func TestDecodeResponse_Errors(t *testing.T) {
	_, _, err := DecodeResponse(NewReadRequest(1, 0, 2).Encode())
	assert.ErrorIs(t, err, ErrUnexpectedTag)

	frame := NewReadResponse(1, 4, 0, []byte{1, 2, 3, 4}).Encode()
	for _, l := range []int{1, 13, 14, 17} {
		_, _, err = DecodeResponse(frame[:l])
		assert.ErrorIs(t, err, ErrShortResponse, "len %d", l)
		assert.True(t, IsShortBuffer(err))
	}
}

func TestResponseHeader_DecodeKeepsWireValue(t *testing.T) {
	frame := NewReadResponse(1, 4, 0, []byte{1, 2, 3, 4}).Encode()
	var h ResponseHeader
	require.NoError(t, h.Decode(frame))
	assert.Equal(t, uint32(18), h.TotalLength)
	assert.Equal(t, frame[:RespHeadLength], (&ResponseHeader{
		ControlBit: h.ControlBit, TotalLength: 17, ChipAddr: h.ChipAddr,
		DataLen: h.DataLen, ParamAddr: h.ParamAddr,
	}).Encode())
}

func TestHeader_Strings(t *testing.T) {
	r := NewReadRequest(1, 0xf6fb, 2)
	assert.Contains(t, r.String(), "READ")
	assert.Contains(t, r.String(), "0xf6fb")

	w := NewWriteRequest(1, 0xf020, 1, 0, []byte{0x00, 0x08})
	assert.Contains(t, w.String(), "WRITE")
	assert.Contains(t, w.String(), "0008")

	assert.Equal(t, "UNKNOWN 0xff", UnknownCommand{Tag: 0xff}.String())
}

func TestHeader_DecodeShortFrame(t *testing.T) {
	var rh ReadRequestHeader
	var le *LengthError
	err := rh.Decode(make([]byte, 11))
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ReadHeadLength, le.Expected)

	var wh WriteRequestHeader
	assert.ErrorIs(t, wh.Decode(make([]byte, 13)), ErrShortWriteHeader)
}
