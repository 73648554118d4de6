package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/gnet/v2"

	"github.com/aaronwong1989/sigmatcp/codec/sigma"
	"github.com/aaronwong1989/sigmatcp/comm"
	"github.com/aaronwong1989/sigmatcp/comm/logging"
	"github.com/aaronwong1989/sigmatcp/device"
)

// replier is the part of gnet.Conn a session writes responses through.
type replier interface {
	AsyncWrite(buf []byte, callback gnet.AsyncCallback) error
}

// session is one controller connection. Commands are executed in arrival
// order: at most one pool task drains the queue at any time.
type session struct {
	id      int32
	remote  string
	conn    replier
	pending int // OnTraffic 上次留在缓冲区未消费的字节数

	mu      sync.Mutex
	queue   []sigma.Command
	running bool
	closed  bool
}

func newSession(id int32, remote string, conn replier) *session {
	return &session{id: id, remote: remote, conn: conn}
}

func (ss *session) String() string {
	return fmt.Sprintf("session(%d, %s)", ss.id, ss.remote)
}

// push appends cmds and reports whether the caller must start a drain task.
func (ss *session) push(cmds []sigma.Command) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return false
	}
	ss.queue = append(ss.queue, cmds...)
	if ss.running {
		return false
	}
	ss.running = true
	return true
}

// pop returns the next command, or false after marking the drain finished.
func (ss *session) pop() (sigma.Command, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed || len(ss.queue) == 0 {
		ss.running = false
		return nil, false
	}
	cmd := ss.queue[0]
	ss.queue[0] = nil
	ss.queue = ss.queue[1:]
	return cmd, true
}

func (ss *session) close() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.closed = true
	ss.queue = nil
}

// executor runs one command against the device and hands the response to a
// responder.
type executor struct {
	srv  *Server
	sess *session
}

var _ sigma.CommandVisitor = (*executor)(nil)

func (e *executor) VisitRead(cmd *sigma.ReadCommand) error {
	e.srv.metrics.CommandTotal.WithLabelValues("read").Inc()
	log.Debugf("[%-9s] %s <<< %s", "Execute", e.sess, cmd)
	h := cmd.Header

	ctx, cancel := context.WithTimeout(context.Background(), e.srv.conf.DeviceTimeout)
	defer cancel()
	start := time.Now()
	data, err := e.srv.dev.ReadParam(ctx, h.ChipAddr, h.ParamAddr, h.DataLen)
	e.srv.metrics.DeviceLatency.WithLabelValues("read").Observe(time.Since(start).Seconds())
	if err != nil {
		e.srv.metrics.DeviceErrors.WithLabelValues("read").Inc()
		e.respond(sigma.NewErrorResponse(fmt.Sprintf("read chip %d addr %#04x len %d: %v", h.ChipAddr, h.ParamAddr, h.DataLen, err)))
		return err
	}
	e.respond(cmd.ToResponse(data))
	return nil
}

func (e *executor) VisitWrite(cmd *sigma.WriteCommand) error {
	e.srv.metrics.CommandTotal.WithLabelValues("write").Inc()
	log.Debugf("[%-9s] %s <<< %s", "Execute", e.sess, cmd)
	h := cmd.Header

	ctx, cancel := context.WithTimeout(context.Background(), e.srv.conf.DeviceTimeout)
	defer cancel()
	start := time.Now()
	err := e.srv.dev.WriteParam(ctx, device.Write{
		Chip:     h.ChipAddr,
		Addr:     h.ParamAddr,
		Safeload: h.Safeload,
		Channel:  h.ChannelNum,
		Data:     cmd.Payload,
	})
	e.srv.metrics.DeviceLatency.WithLabelValues("write").Observe(time.Since(start).Seconds())
	if err != nil {
		e.srv.metrics.DeviceErrors.WithLabelValues("write").Inc()
		e.respond(sigma.NewErrorResponse(fmt.Sprintf("write chip %d addr %#04x len %d: %v", h.ChipAddr, h.ParamAddr, h.DataLen, err)))
		return err
	}
	e.respond(cmd.ToResponse())
	return nil
}

func (e *executor) VisitUnknown(cmd sigma.UnknownCommand) error {
	e.srv.metrics.CommandTotal.WithLabelValues("unknown").Inc()
	log.Warnf("[%-9s] %s discarded %s", "Execute", e.sess, cmd)
	return nil
}

func (e *executor) respond(resp sigma.Response) {
	resp.Accept(&responder{srv: e.srv, sess: e.sess})
}

// responder puts read replies on the wire. Writes and errors produce no bytes.
type responder struct {
	srv  *Server
	sess *session
}

var _ sigma.ResponseVisitor = (*responder)(nil)

func (r *responder) VisitRead(resp *sigma.ReadResponse) {
	frame := resp.Encode()
	comm.LogHex(logging.DebugLevel, "Response", frame)
	if err := r.sess.conn.AsyncWrite(frame, nil); err != nil {
		log.Errorf("[%-9s] %s >>> %s, error: %v", "Respond", r.sess, resp, err)
		return
	}
	r.srv.metrics.TCPBytesSent.Add(float64(len(frame)))
	log.Debugf("[%-9s] %s >>> %s", "Respond", r.sess, resp)
}

func (r *responder) VisitWrite(resp *sigma.WriteResponse) {
	log.Debugf("[%-9s] %s %s", "Respond", r.sess, resp)
}

func (r *responder) VisitError(resp *sigma.ErrorResponse) {
	log.Errorf("[%-9s] %s %s", "Respond", r.sess, resp)
}

// split parses every complete frame at the head of buf. It stops at a frame
// that is still arriving and returns an error when the stream cannot be
// recovered, in which case the connection must be closed.
func split(buf []byte, maxFrameLength int) (cmds []sigma.Command, consumed int, err error) {
	for consumed < len(buf) {
		cmd, n, err := sigma.ParseCommand(buf[consumed:])
		if err != nil {
			var le *sigma.LengthError
			if sigma.IsShortBuffer(err) && errors.As(err, &le) && le.Expected <= maxFrameLength {
				break
			}
			return cmds, consumed, err
		}
		// 读请求头已完整但填充字节未到齐时，等待整帧，避免填充字节被当作未知标签丢弃
		if read, ok := cmd.(*sigma.ReadCommand); ok {
			total := uint64(read.Header.TotalLength)
			if uint64(n) < total && total <= uint64(maxFrameLength) {
				break
			}
		}
		// total_len 小于头长度时至少跳过已解析的头，否则游标原地不动
		if head := headLength(cmd); n < head {
			n = head
		}
		cmds = append(cmds, cmd)
		consumed += n
	}
	return cmds, consumed, nil
}

func headLength(cmd sigma.Command) int {
	switch cmd.(type) {
	case *sigma.ReadCommand:
		return sigma.ReadHeadLength
	case *sigma.WriteCommand:
		return sigma.WriteHeadLength
	default:
		return 1
	}
}
