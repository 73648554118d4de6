package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aaronwong1989/sigmatcp/comm/logging"
)

var log = logging.GetDefaultLogger()

var (
	ErrClosed      = errors.New("device: closed")
	ErrUnknownKind = errors.New("device: unknown kind")
	ErrOutOfRange  = errors.New("device: access beyond parameter memory")
)

// Write is one parameter write as received from the controller.
type Write struct {
	Chip     uint8
	Addr     uint16
	Safeload uint8
	Channel  uint8
	Data     []byte
}

func (w Write) String() string {
	return fmt.Sprintf("{ Chip: %d, Addr: %#04x, Safeload: %d, Channel: %d, Data: %x }", w.Chip, w.Addr, w.Safeload, w.Channel, w.Data)
}

// Device performs parameter memory access on the DSP.
type Device interface {
	ReadParam(ctx context.Context, chip uint8, addr uint16, n uint32) ([]byte, error)
	WriteParam(ctx context.Context, w Write) error
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind     string // memory | serial
	Snapshot string // memory: yaml 快照文件
	Serial   SerialConfig
}

type SerialConfig struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

// Open returns the backend named by cfg.Kind.
func Open(cfg Config) (Device, error) {
	switch cfg.Kind {
	case "", "memory":
		mem := NewMemory()
		if cfg.Snapshot != "" {
			err := mem.LoadSnapshot(cfg.Snapshot)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			if err != nil {
				log.Warnf("[%-9s] snapshot %s not found, starting empty", "Device", cfg.Snapshot)
			}
			mem.snapshot = cfg.Snapshot
		}
		return mem, nil
	case "serial":
		s, err := OpenSerial(cfg.Serial)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}
