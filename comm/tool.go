package comm

import (
	"bufio"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strconv"

	"github.com/aaronwong1989/sigmatcp/comm/logging"
)

var log = logging.GetDefaultLogger()

// LogHex 以十六进制输出报文，级别未开启时不做格式化
func LogHex(level logging.Level, model string, bts []byte) {
	if !log.Enabled(level) {
		return
	}
	log.Logf(level, "[OnTraffic] Hex %s: %x", model, bts)
}

// SavePid 在程序执行的当前目录生成pid文件
func SavePid(f string) string {
	pid := fmt.Sprintf("%d", os.Getpid())
	file, err := os.OpenFile(f, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		log.Errorf("%v", err)
		return pid
	}

	writer := bufio.NewWriter(file)
	_, _ = writer.WriteString(pid)
	defer func(file *os.File, writer *bufio.Writer) {
		_ = writer.Flush()
		_ = file.Close()
	}(file, writer)

	return pid
}

// StartMonitor 在 port+1 上开启 pprof 与 /metrics
func StartMonitor(port int, metrics http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	go func() {
		addr := strconv.Itoa(port + 1)
		log.Infof("[%-9s] http://localhost:%s/debug/pprof/ http://localhost:%s/metrics", "Monitor", addr, addr)
		if err := http.ListenAndServe(":"+addr, mux); err != nil {
			log.Infof("start monitor failed on %s: %v", addr, err)
		}
	}()
}
