package device

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwong1989/sigmatcp/codec/sigma"
)

// bridgePort answers read frames from a Memory, like the bridge board would.
type bridgePort struct {
	sync.Mutex
	mem    *Memory
	rx     bytes.Buffer
	tx     bytes.Buffer
	closed bool
}

func (p *bridgePort) Write(b []byte) (int, error) {
	p.Lock()
	defer p.Unlock()
	p.tx.Write(b)
	for p.tx.Len() > 0 {
		cmd, n, err := sigma.ParseCommand(p.tx.Bytes())
		if err != nil {
			break
		}
		p.tx.Next(n)
		switch c := cmd.(type) {
		case *sigma.ReadCommand:
			data, _ := p.mem.ReadParam(context.Background(), c.Header.ChipAddr, c.Header.ParamAddr, c.Header.DataLen)
			p.rx.Write(c.ToResponse(data).Encode())
		case *sigma.WriteCommand:
			_ = p.mem.WriteParam(context.Background(), Write{Chip: c.Header.ChipAddr, Addr: c.Header.ParamAddr, Data: c.Payload})
		}
	}
	return len(b), nil
}

func (p *bridgePort) Read(b []byte) (int, error) {
	p.Lock()
	defer p.Unlock()
	if p.rx.Len() == 0 {
		return 0, io.EOF
	}
	// 模拟串口分片到达
	if len(b) > 5 {
		b = b[:5]
	}
	return p.rx.Read(b)
}

func (p *bridgePort) Close() error {
	p.closed = true
	return nil
}

func TestSerial_ReadWrite(t *testing.T) {
	ctx := context.Background()
	port := &bridgePort{mem: NewMemory()}
	dev := NewSerial(port)

	require.NoError(t, dev.WriteParam(ctx, Write{Chip: 1, Addr: 0xf020, Safeload: 1, Data: []byte{0x00, 0x08}}))
	data, err := dev.ReadParam(ctx, 1, 0xf020, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x08}, data)

	// data_len == 4 的应答 total_len 多 1 字节，解码按 data_len 取数据
	require.NoError(t, dev.WriteParam(ctx, Write{Chip: 1, Addr: 0x0100, Data: []byte{1, 2, 3, 4}}))
	data, err = dev.ReadParam(ctx, 1, 0x0100, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	require.NoError(t, dev.Close())
	assert.True(t, port.closed)
	_, err = dev.ReadParam(ctx, 1, 0, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

type silentPort struct{ bytes.Buffer }

func (p *silentPort) Read([]byte) (int, error) { return 0, io.EOF }
func (p *silentPort) Close() error             { return nil }

func TestSerial_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	dev := NewSerial(&silentPort{})
	_, err := dev.ReadParam(ctx, 1, 0xf6fb, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout), "%v", err)
}

func TestSerial_ReadLengthBounded(t *testing.T) {
	port := &silentPort{}
	dev := NewSerial(port)

	start := time.Now()
	_, err := dev.ReadParam(context.Background(), 1, 0, 1<<30)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = dev.ReadParam(context.Background(), 1, 0xfffe, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Less(t, time.Since(start), time.Second)
	// 越界请求不会发往串口
	assert.Zero(t, port.Len())
}

type echoPort struct {
	bytes.Buffer
	reply []byte
}

func (p *echoPort) Read(b []byte) (int, error) {
	if len(p.reply) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.reply)
	p.reply = p.reply[n:]
	return n, nil
}
func (p *echoPort) Close() error { return nil }

func TestSerial_Mismatch(t *testing.T) {
	reply := sigma.NewReadResponse(2, 2, 0xf6fb, []byte{1, 2}).Encode()
	dev := NewSerial(&echoPort{reply: reply})
	_, err := dev.ReadParam(context.Background(), 1, 0xf6fb, 2)
	assert.ErrorIs(t, err, ErrMismatch)
}
