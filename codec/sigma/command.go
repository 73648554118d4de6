package sigma

import (
	"fmt"
)

// Command is one of *ReadCommand, *WriteCommand or UnknownCommand.
// The set is closed; consumers dispatch through Accept.
type Command interface {
	fmt.Stringer
	Accept(v CommandVisitor) error
	isCommand()
}

// CommandVisitor has one method per Command variant.
type CommandVisitor interface {
	VisitRead(cmd *ReadCommand) error
	VisitWrite(cmd *WriteCommand) error
	VisitUnknown(cmd UnknownCommand) error
}

type ReadCommand struct {
	Header ReadRequestHeader
}

func (c *ReadCommand) Accept(v CommandVisitor) error { return v.VisitRead(c) }
func (c *ReadCommand) isCommand()                    {}

func (c *ReadCommand) String() string {
	return fmt.Sprintf("READ %s", &c.Header)
}

// ToResponse wraps the bytes read from the device into the reply for this command.
func (c *ReadCommand) ToResponse(payload []byte) *ReadResponse {
	return NewReadResponse(c.Header.ChipAddr, c.Header.DataLen, c.Header.ParamAddr, payload)
}

type WriteCommand struct {
	Header  WriteRequestHeader
	Payload []byte
}

func (c *WriteCommand) Accept(v CommandVisitor) error { return v.VisitWrite(c) }
func (c *WriteCommand) isCommand()                    {}

func (c *WriteCommand) String() string {
	return fmt.Sprintf("WRITE %s, Payload: %x", &c.Header, c.Payload)
}

func (c *WriteCommand) ToResponse() *WriteResponse {
	return NewWriteResponse()
}

// UnknownCommand is a leading byte that is not a known control bit.
type UnknownCommand struct {
	Tag uint8
}

func (c UnknownCommand) Accept(v CommandVisitor) error { return v.VisitUnknown(c) }
func (c UnknownCommand) isCommand()                    {}

func (c UnknownCommand) String() string {
	return fmt.Sprintf("UNKNOWN %#02x", c.Tag)
}

// Response is one of *ReadResponse, *WriteResponse or *ErrorResponse.
type Response interface {
	fmt.Stringer
	Encode() []byte
	Accept(v ResponseVisitor)
	isResponse()
}

// ResponseVisitor has one method per Response variant.
type ResponseVisitor interface {
	VisitRead(resp *ReadResponse)
	VisitWrite(resp *WriteResponse)
	VisitError(resp *ErrorResponse)
}

type ReadResponse struct {
	Header  ResponseHeader
	Payload []byte
}

func (r *ReadResponse) Accept(v ResponseVisitor) { v.VisitRead(r) }
func (r *ReadResponse) isResponse()              {}

// Encode computes total_len from the payload actually carried, never from the
// request.
func (r *ReadResponse) Encode() []byte {
	header := r.Header
	header.TotalLength = uint32(RespFixedLength + len(r.Payload))
	frame := header.Encode()
	return append(frame, r.Payload...)
}

func (r *ReadResponse) String() string {
	return fmt.Sprintf("{ Header: %s, Payload: %x }", &r.Header, r.Payload)
}

// WriteResponse acknowledges a write. Nothing is sent back to the controller.
type WriteResponse struct{}

func (r *WriteResponse) Accept(v ResponseVisitor) { v.VisitWrite(r) }
func (r *WriteResponse) isResponse()              {}
func (r *WriteResponse) Encode() []byte           { return []byte{} }
func (r *WriteResponse) String() string           { return "{ WRITE ACK }" }

// ErrorResponse carries a diagnostic for the log; it has no wire form.
type ErrorResponse struct {
	Message string
}

func (r *ErrorResponse) Accept(v ResponseVisitor) { v.VisitError(r) }
func (r *ErrorResponse) isResponse()              {}
func (r *ErrorResponse) Encode() []byte           { return []byte{} }
func (r *ErrorResponse) String() string           { return fmt.Sprintf("{ ERROR: %s }", r.Message) }
