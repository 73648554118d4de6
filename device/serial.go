package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/aaronwong1989/sigmatcp/codec/sigma"
	"github.com/aaronwong1989/sigmatcp/comm"
	"github.com/aaronwong1989/sigmatcp/comm/logging"
)

// defaultExchangeTimeout bounds a read exchange when ctx carries no deadline.
const defaultExchangeTimeout = 2 * time.Second

var (
	ErrTimeout  = errors.New("device: serial exchange timed out")
	ErrMismatch = errors.New("device: response does not match request")
)

// Port is the byte pipe to the bridge board. A Read that times out returns
// 0 bytes with io.EOF or nil, as tarm/serial does.
type Port interface {
	io.ReadWriteCloser
}

// Serial forwards parameter access to a UART attached bridge board that
// speaks the same frames as the TCP side.
type Serial struct {
	mu     sync.Mutex
	port   Port
	closed bool
}

// OpenSerial opens the named tty with tarm/serial.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 100 * time.Millisecond
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Name, err)
	}
	log.Infof("[%-9s] opened %s at %d baud", "Serial", cfg.Name, cfg.Baud)
	return NewSerial(port), nil
}

func NewSerial(port Port) *Serial {
	return &Serial{port: port}
}

func (s *Serial) ReadParam(ctx context.Context, chip uint8, addr uint16, n uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	// n 来自控制端，分配接收缓冲区前先按参数空间上限校验
	if uint64(addr)+uint64(n) > MemorySize {
		return nil, fmt.Errorf("%w: read %d bytes at %#04x", ErrOutOfRange, n, addr)
	}
	req := sigma.NewReadRequest(chip, addr, n)
	if err := s.send(req.Encode()); err != nil {
		return nil, err
	}
	frame, err := s.receive(ctx, sigma.RespHeadLength+int(n))
	if err != nil {
		return nil, err
	}
	comm.LogHex(logging.DebugLevel, "Serial", frame)
	resp, _, err := sigma.DecodeResponse(frame)
	if err != nil {
		return nil, fmt.Errorf("serial read %#04x: %w", addr, err)
	}
	if resp.Header.ChipAddr != chip || resp.Header.ParamAddr != addr || resp.Header.DataLen != n {
		return nil, fmt.Errorf("%w: sent %s, got %s", ErrMismatch, &req.Header, &resp.Header)
	}
	return resp.Payload, nil
}

// WriteParam sends the write frame; the bridge does not acknowledge writes.
func (s *Serial) WriteParam(_ context.Context, w Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.send(sigma.NewWriteRequest(w.Chip, w.Addr, w.Safeload, w.Channel, w.Data).Encode())
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

func (s *Serial) send(frame []byte) error {
	for len(frame) > 0 {
		n, err := s.port.Write(frame)
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		frame = frame[n:]
	}
	return nil
}

func (s *Serial) receive(ctx context.Context, need int) ([]byte, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultExchangeTimeout)
	}
	buf := make([]byte, need)
	got := 0
	for got < need {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := s.port.Read(buf[got:])
		got += n
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("serial read: %w", err)
		}
		if n == 0 && time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTimeout, got, need)
		}
	}
	return buf, nil
}
