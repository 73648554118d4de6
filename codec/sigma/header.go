package sigma

import (
	"fmt"

	"github.com/aaronwong1989/sigmatcp/codec"
)

const (
	CmdRead  = uint8(0x0a) // 读参数请求
	CmdWrite = uint8(0x09) // 写参数请求
	CmdResp  = uint8(0x0b) // 应答

	ReadHeadLength  = 12 // 读请求头长度
	WriteHeadLength = 14 // 写请求头长度，其后紧跟 data_len 字节数据
	RespFixedLength = 13 // 应答头参与 total_len 计算的长度
	RespHeadLength  = 14 // 应答头在线上的长度，含 1 字节 reserved
)

var CommandMap = map[uint8]string{
	CmdRead:  "READ",
	CmdWrite: "WRITE",
	CmdResp:  "RESP",
}

var (
	_ codec.IHead = (*ReadRequestHeader)(nil)
	_ codec.IHead = (*WriteRequestHeader)(nil)
	_ codec.IHead = (*ResponseHeader)(nil)
	_ codec.OHead = (*ReadRequestHeader)(nil)
	_ codec.OHead = (*WriteRequestHeader)(nil)
	_ codec.OHead = (*ResponseHeader)(nil)
)

// ReadRequestHeader is the 12 byte read command.
type ReadRequestHeader struct {
	ControlBit  uint8  // +1 = 1
	TotalLength uint32 // +4 = 5：发送方声明的整帧长度
	ChipAddr    uint8  // +1 = 6
	DataLen     uint32 // +4 = 10：期望返回的字节数
	ParamAddr   uint16 // +2 = 12
}

func (h *ReadRequestHeader) Decode(frame []byte) (err error) {
	if len(frame) < ReadHeadLength {
		return &LengthError{Err: ErrShortReadHeader, Expected: ReadHeadLength, Actual: len(frame)}
	}
	if h.ControlBit, err = U8(frame, 0); err != nil {
		return err
	}
	if h.TotalLength, err = U32(frame, 1); err != nil {
		return err
	}
	if h.ChipAddr, err = U8(frame, 5); err != nil {
		return err
	}
	if h.DataLen, err = U32(frame, 6); err != nil {
		return err
	}
	h.ParamAddr, err = U16(frame, 10)
	return err
}

func (h *ReadRequestHeader) Encode() []byte {
	frame := make([]byte, ReadHeadLength)
	index := PutU8(frame, 0, h.ControlBit)
	index = PutU32(frame, index, h.TotalLength)
	index = PutU8(frame, index, h.ChipAddr)
	index = PutU32(frame, index, h.DataLen)
	PutU16(frame, index, h.ParamAddr)
	return frame
}

func (h *ReadRequestHeader) String() string {
	return fmt.Sprintf("{ ControlBit: %s, TotalLength: %d, ChipAddr: %d, DataLen: %d, ParamAddr: %#04x }",
		CommandMap[h.ControlBit], h.TotalLength, h.ChipAddr, h.DataLen, h.ParamAddr)
}

// WriteRequestHeader is the 14 byte write command header, followed by DataLen bytes.
type WriteRequestHeader struct {
	ControlBit  uint8  // +1 = 1
	Safeload    uint8  // +1 = 2：透传给设备层
	ChannelNum  uint8  // +1 = 3：透传给设备层
	TotalLength uint32 // +4 = 7：头 + 数据
	ChipAddr    uint8  // +1 = 8
	DataLen     uint32 // +4 = 12：数据长度
	ParamAddr   uint16 // +2 = 14
}

func (h *WriteRequestHeader) Decode(frame []byte) (err error) {
	if len(frame) < WriteHeadLength {
		return &LengthError{Err: ErrShortWriteHeader, Expected: WriteHeadLength, Actual: len(frame)}
	}
	if h.ControlBit, err = U8(frame, 0); err != nil {
		return err
	}
	if h.Safeload, err = U8(frame, 1); err != nil {
		return err
	}
	if h.ChannelNum, err = U8(frame, 2); err != nil {
		return err
	}
	if h.TotalLength, err = U32(frame, 3); err != nil {
		return err
	}
	if h.ChipAddr, err = U8(frame, 7); err != nil {
		return err
	}
	if h.DataLen, err = U32(frame, 8); err != nil {
		return err
	}
	h.ParamAddr, err = U16(frame, 12)
	return err
}

func (h *WriteRequestHeader) Encode() []byte {
	frame := make([]byte, WriteHeadLength)
	index := PutU8(frame, 0, h.ControlBit)
	index = PutU8(frame, index, h.Safeload)
	index = PutU8(frame, index, h.ChannelNum)
	index = PutU32(frame, index, h.TotalLength)
	index = PutU8(frame, index, h.ChipAddr)
	index = PutU32(frame, index, h.DataLen)
	PutU16(frame, index, h.ParamAddr)
	return frame
}

func (h *WriteRequestHeader) String() string {
	return fmt.Sprintf("{ ControlBit: %s, Safeload: %d, ChannelNum: %d, TotalLength: %d, ChipAddr: %d, DataLen: %d, ParamAddr: %#04x }",
		CommandMap[h.ControlBit], h.Safeload, h.ChannelNum, h.TotalLength, h.ChipAddr, h.DataLen, h.ParamAddr)
}

// ResponseHeader precedes the payload of a read reply.
// TotalLength always holds the true frame length; Encode applies the legacy
// adjustment on the wire only.
type ResponseHeader struct {
	ControlBit  uint8  // +1 = 1
	TotalLength uint32 // +4 = 5
	ChipAddr    uint8  // +1 = 6
	DataLen     uint32 // +4 = 10：回显请求的 data_len
	ParamAddr   uint16 // +2 = 12
	Success     uint8  // +1 = 13：固定为 0
	Reserved    uint8  // +1 = 14
}

func (h *ResponseHeader) Encode() []byte {
	totalLength := h.TotalLength
	// Deployed controller software expects total_len one byte larger than the
	// real frame whenever the echoed data_len is exactly 4. Keep it that way.
	if h.DataLen == 4 {
		totalLength++
	}
	frame := make([]byte, RespHeadLength)
	index := PutU8(frame, 0, h.ControlBit)
	index = PutU32(frame, index, totalLength)
	index = PutU8(frame, index, h.ChipAddr)
	index = PutU32(frame, index, h.DataLen)
	index = PutU16(frame, index, h.ParamAddr)
	index = PutU8(frame, index, h.Success)
	PutU8(frame, index, h.Reserved)
	return frame
}

// Decode reads the header exactly as it appears on the wire, so TotalLength
// keeps the legacy adjustment.
func (h *ResponseHeader) Decode(frame []byte) (err error) {
	if len(frame) < RespHeadLength {
		return &LengthError{Err: ErrShortResponse, Expected: RespHeadLength, Actual: len(frame)}
	}
	if h.ControlBit, err = U8(frame, 0); err != nil {
		return err
	}
	if h.TotalLength, err = U32(frame, 1); err != nil {
		return err
	}
	if h.ChipAddr, err = U8(frame, 5); err != nil {
		return err
	}
	if h.DataLen, err = U32(frame, 6); err != nil {
		return err
	}
	if h.ParamAddr, err = U16(frame, 10); err != nil {
		return err
	}
	if h.Success, err = U8(frame, 12); err != nil {
		return err
	}
	h.Reserved, err = U8(frame, 13)
	return err
}

func (h *ResponseHeader) String() string {
	return fmt.Sprintf("{ ControlBit: %s, TotalLength: %d, ChipAddr: %d, DataLen: %d, ParamAddr: %#04x, Success: %d }",
		CommandMap[h.ControlBit], h.TotalLength, h.ChipAddr, h.DataLen, h.ParamAddr, h.Success)
}
