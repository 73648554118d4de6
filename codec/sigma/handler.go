package sigma

import (
	"math"
)

// ReadFrameLength is the read request length sent by the controller software:
// the 12 byte header followed by two padding bytes.
const ReadFrameLength = ReadHeadLength + 2

// ParseCommand recognizes the frame at the start of buf and reports how many
// bytes it occupies. Bytes after the frame are left untouched.
func ParseCommand(buf []byte) (Command, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrEmptyBuffer
	}
	switch buf[0] {
	case CmdRead:
		return parseRead(buf)
	case CmdWrite:
		return parseWrite(buf)
	default:
		return UnknownCommand{Tag: buf[0]}, 1, nil
	}
}

func parseRead(buf []byte) (Command, int, error) {
	if len(buf) < ReadHeadLength {
		log.Errorf("[%-9s] buffer too short for read command, expected at least %d bytes, got %d", "Parse", ReadHeadLength, len(buf))
		return nil, 0, &LengthError{Err: ErrShortReadHeader, Expected: ReadHeadLength, Actual: len(buf)}
	}
	cmd := &ReadCommand{}
	if err := cmd.Header.Decode(buf); err != nil {
		return nil, 0, err
	}
	n := uint64(cmd.Header.TotalLength)
	if uint64(len(buf)) >= n {
		return cmd, int(n), nil
	}
	// 帧不完整但头部可用，是否等待剩余字节由传输层决定
	log.Debugf("[%-9s] read frame truncated, declared %d bytes, got %d", "Parse", cmd.Header.TotalLength, len(buf))
	return cmd, ReadHeadLength, nil
}

func parseWrite(buf []byte) (Command, int, error) {
	if len(buf) < WriteHeadLength {
		log.Errorf("[%-9s] buffer too short for write command, expected at least %d bytes, got %d", "Parse", WriteHeadLength, len(buf))
		return nil, 0, &LengthError{Err: ErrShortWriteHeader, Expected: WriteHeadLength, Actual: len(buf)}
	}
	cmd := &WriteCommand{}
	if err := cmd.Header.Decode(buf); err != nil {
		return nil, 0, err
	}
	n := uint64(cmd.Header.TotalLength)
	if uint64(len(buf)) < n {
		log.Errorf("[%-9s] buffer too short for write data, expected %d bytes, got %d", "Parse", n, len(buf))
		return nil, 0, &LengthError{Err: ErrShortPayload, Expected: clampInt(n), Actual: len(buf)}
	}
	// payload 长度取 data_len 而不是 total_len-14
	end := uint64(WriteHeadLength) + uint64(cmd.Header.DataLen)
	if end > uint64(len(buf)) {
		log.Errorf("[%-9s] write payload exceeds buffer, data_len %d, got %d bytes after header", "Parse", cmd.Header.DataLen, len(buf)-WriteHeadLength)
		return nil, 0, &LengthError{Err: ErrShortPayload, Expected: clampInt(end), Actual: len(buf)}
	}
	cmd.Payload = make([]byte, cmd.Header.DataLen)
	copy(cmd.Payload, buf[WriteHeadLength:end])
	return cmd, int(n), nil
}

// clampInt converts a declared length for LengthError without going negative
// where int is 32 bits wide.
func clampInt(v uint64) int {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// NewReadResponse builds the reply to a read; success is always 0.
func NewReadResponse(chipAddr uint8, dataLen uint32, paramAddr uint16, payload []byte) *ReadResponse {
	return &ReadResponse{
		Header: ResponseHeader{
			ControlBit:  CmdResp,
			TotalLength: uint32(RespFixedLength + len(payload)),
			ChipAddr:    chipAddr,
			DataLen:     dataLen,
			ParamAddr:   paramAddr,
		},
		Payload: payload,
	}
}

func NewWriteResponse() *WriteResponse {
	return &WriteResponse{}
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Message: message}
}

// NewReadRequest builds a read command the way the controller software sends it.
func NewReadRequest(chipAddr uint8, paramAddr uint16, dataLen uint32) *ReadCommand {
	return &ReadCommand{Header: ReadRequestHeader{
		ControlBit:  CmdRead,
		TotalLength: ReadFrameLength,
		ChipAddr:    chipAddr,
		DataLen:     dataLen,
		ParamAddr:   paramAddr,
	}}
}

// Encode emits the header padded with zeros up to TotalLength.
func (c *ReadCommand) Encode() []byte {
	frame := c.Header.Encode()
	if c.Header.TotalLength > ReadHeadLength {
		frame = append(frame, make([]byte, c.Header.TotalLength-ReadHeadLength)...)
	}
	return frame
}

func NewWriteRequest(chipAddr uint8, paramAddr uint16, safeload, channel uint8, payload []byte) *WriteCommand {
	return &WriteCommand{
		Header: WriteRequestHeader{
			ControlBit:  CmdWrite,
			Safeload:    safeload,
			ChannelNum:  channel,
			TotalLength: uint32(WriteHeadLength + len(payload)),
			ChipAddr:    chipAddr,
			DataLen:     uint32(len(payload)),
			ParamAddr:   paramAddr,
		},
		Payload: payload,
	}
}

func (c *WriteCommand) Encode() []byte {
	return append(c.Header.Encode(), c.Payload...)
}

// DecodeResponse reads a read reply from the start of buf, as a controller
// would. The payload length comes from data_len; the returned header carries
// the true TotalLength rather than the adjusted wire value.
func DecodeResponse(buf []byte) (*ReadResponse, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrEmptyBuffer
	}
	if buf[0] != CmdResp {
		return nil, 0, ErrUnexpectedTag
	}
	resp := &ReadResponse{}
	if err := resp.Header.Decode(buf); err != nil {
		return nil, 0, err
	}
	end := uint64(RespHeadLength) + uint64(resp.Header.DataLen)
	if end > uint64(len(buf)) {
		return nil, 0, &LengthError{Err: ErrShortResponse, Expected: clampInt(end), Actual: len(buf)}
	}
	resp.Payload = make([]byte, resp.Header.DataLen)
	copy(resp.Payload, buf[RespHeadLength:end])
	resp.Header.TotalLength = uint32(RespFixedLength + len(resp.Payload))
	return resp, int(end), nil
}
