package device

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// MemorySize is the byte size of one chip's parameter memory image.
const MemorySize = 1 << 16

// zeroGap is how many zero bytes end a run when the image is written to a snapshot.
const zeroGap = 4

// Memory keeps a parameter memory image per chip in process memory.
// It stands in for hardware during development and in tests.
type Memory struct {
	mu       sync.RWMutex
	chips    map[uint8][]byte
	closed   bool
	snapshot string // Close 时保存快照的路径

	safeloads uint64 // safeload 写入次数
}

func NewMemory() *Memory {
	return &Memory{chips: make(map[uint8][]byte)}
}

func (m *Memory) ReadParam(ctx context.Context, chip uint8, addr uint16, n uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if uint64(addr)+uint64(n) > MemorySize {
		return nil, fmt.Errorf("%w: read %d bytes at %#04x", ErrOutOfRange, n, addr)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]byte, n)
	if image, ok := m.chips[chip]; ok {
		copy(out, image[int(addr):int(addr)+int(n)])
	}
	return out, nil
}

func (m *Memory) WriteParam(ctx context.Context, w Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if uint64(w.Addr)+uint64(len(w.Data)) > MemorySize {
		return fmt.Errorf("%w: write %d bytes at %#04x", ErrOutOfRange, len(w.Data), w.Addr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	copy(m.image(w.Chip)[int(w.Addr):], w.Data)
	if w.Safeload != 0 {
		m.safeloads++
	}
	log.Debugf("[%-9s] %s", "Memory", w)
	return nil
}

// SafeloadCount reports how many writes carried the safeload flag.
func (m *Memory) SafeloadCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.safeloads
}

// Close saves the snapshot when the memory was opened from one.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	if m.snapshot == "" {
		return nil
	}
	return m.saveSnapshot(m.snapshot)
}

func (m *Memory) image(chip uint8) []byte {
	image, ok := m.chips[chip]
	if !ok {
		image = make([]byte, MemorySize)
		m.chips[chip] = image
	}
	return image
}

// snapshotDoc is the yaml layout:
//
//	chips:
//	  1:
//	    "0xf020": "0008"
type snapshotDoc struct {
	Chips map[uint8]map[string]string `yaml:"chips"`
}

// LoadSnapshot applies every run in the yaml file on top of the current image.
func (m *Memory) LoadSnapshot(path string) error {
	bts, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	doc := snapshotDoc{}
	if err = yaml.Unmarshal(bts, &doc); err != nil {
		return fmt.Errorf("load snapshot %s: %w", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := 0
	for chip, params := range doc.Chips {
		for key, value := range params {
			addr, err := strconv.ParseUint(key, 0, 16)
			if err != nil {
				return fmt.Errorf("load snapshot %s: chip %d address %q: %w", path, chip, key, err)
			}
			data, err := hex.DecodeString(value)
			if err != nil {
				return fmt.Errorf("load snapshot %s: chip %d address %q: %w", path, chip, key, err)
			}
			if addr+uint64(len(data)) > MemorySize {
				return fmt.Errorf("load snapshot %s: chip %d address %q: %w", path, chip, key, ErrOutOfRange)
			}
			copy(m.image(chip)[addr:], data)
			runs++
		}
	}
	log.Infof("[%-9s] loaded %d runs for %d chips from %s", "Memory", runs, len(doc.Chips), path)
	return nil
}

// SaveSnapshot writes the non-zero runs of every chip image as yaml.
func (m *Memory) SaveSnapshot(path string) error {
	return m.saveSnapshot(path)
}

func (m *Memory) saveSnapshot(path string) error {
	m.mu.RLock()
	doc := snapshotDoc{Chips: make(map[uint8]map[string]string, len(m.chips))}
	for chip, image := range m.chips {
		params := make(map[string]string)
		for _, r := range nonZeroRuns(image) {
			params[fmt.Sprintf("%#04x", r[0])] = hex.EncodeToString(image[r[0]:r[1]])
		}
		if len(params) > 0 {
			doc.Chips[chip] = params
		}
	}
	m.mu.RUnlock()

	bts, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err = os.WriteFile(path, bts, 0644); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	log.Infof("[%-9s] saved %d chips to %s", "Memory", len(doc.Chips), path)
	return nil
}

// nonZeroRuns returns [start, end) spans separated by at least zeroGap zero bytes.
func nonZeroRuns(image []byte) [][2]int {
	var runs [][2]int
	start, zeros := -1, 0
	for i, b := range image {
		if b != 0 {
			if start < 0 {
				start = i
			}
			zeros = 0
			continue
		}
		if start < 0 {
			continue
		}
		zeros++
		if zeros == zeroGap {
			runs = append(runs, [2]int{start, i - zeroGap + 1})
			start, zeros = -1, 0
		}
	}
	if start >= 0 {
		runs = append(runs, [2]int{start, len(image) - zeros})
	}
	return runs
}
