package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/aaronwong1989/sigmatcp/codec/sigma"
	"github.com/aaronwong1989/sigmatcp/comm/logging"
)

var log = logging.GetDefaultLogger()

const usage = `usage:
  sigmactl [-addr host:port] read  -chip 1 -param 0xf6fb -n 2
  sigmactl [-addr host:port] write -chip 1 -param 0xf020 -data 0008 [-safeload 1] [-channel 0]
`

func main() {
	addr := flag.String("addr", "127.0.0.1:8086", "--addr 127.0.0.1:8086")
	timeout := flag.Duration("timeout", 3*time.Second, "--timeout 3s")
	flag.Usage = func() { _, _ = fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch flag.Arg(0) {
	case "read":
		err = runRead(*addr, *timeout, flag.Args()[1:])
	case "write":
		err = runWrite(*addr, *timeout, flag.Args()[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Errorf("[%-9s] %v", flag.Arg(0), err)
		os.Exit(1)
	}
}

func runRead(addr string, timeout time.Duration, args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	chip := fs.Uint("chip", 1, "chip address")
	param := fs.String("param", "0", "parameter address, e.g. 0xf6fb")
	n := fs.Uint("n", 2, "bytes to read")
	_ = fs.Parse(args)

	paramAddr, err := parseAddr(*param)
	if err != nil {
		return err
	}
	req := sigma.NewReadRequest(uint8(*chip), paramAddr, uint32(*n))
	c, err := dial(addr, timeout)
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err = c.Write(req.Encode()); err != nil {
		return err
	}
	log.Infof("[%-9s] >>> %s", "Read", req)

	frame := make([]byte, sigma.RespHeadLength+int(*n))
	if _, err = io.ReadFull(c, frame); err != nil {
		return fmt.Errorf("waiting for response: %w", err)
	}
	resp, _, err := sigma.DecodeResponse(frame)
	if err != nil {
		return err
	}
	log.Infof("[%-9s] <<< %s", "Read", resp)
	fmt.Println(hex.EncodeToString(resp.Payload))
	return nil
}

func runWrite(addr string, timeout time.Duration, args []string) error {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	chip := fs.Uint("chip", 1, "chip address")
	param := fs.String("param", "0", "parameter address, e.g. 0xf020")
	data := fs.String("data", "", "payload as hex, e.g. 0008")
	safeload := fs.Uint("safeload", 0, "safeload flag")
	channel := fs.Uint("channel", 0, "channel number")
	_ = fs.Parse(args)

	paramAddr, err := parseAddr(*param)
	if err != nil {
		return err
	}
	payload, err := hex.DecodeString(*data)
	if err != nil {
		return fmt.Errorf("invalid -data: %w", err)
	}
	req := sigma.NewWriteRequest(uint8(*chip), paramAddr, uint8(*safeload), uint8(*channel), payload)
	c, err := dial(addr, timeout)
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err = c.Write(req.Encode()); err != nil {
		return err
	}
	log.Infof("[%-9s] >>> %s", "Write", req)
	return nil
}

func dial(addr string, timeout time.Duration) (net.Conn, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	_ = c.SetDeadline(time.Now().Add(timeout))
	return c, nil
}

// parseAddr accepts 0xf6fb, 63227 or 0o173 style literals.
func parseAddr(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint16(v), nil
}
