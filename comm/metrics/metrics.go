package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 业务指标
type AppMetrics struct {
	TCPAccepted      prometheus.Counter
	TCPRejected      prometheus.Counter
	TCPBytesReceived prometheus.Counter
	TCPBytesSent     prometheus.Counter
	ActiveConns      prometheus.Gauge
	ParseTotal       *prometheus.CounterVec // labels: result=ok|short|error
	CommandTotal     *prometheus.CounterVec // labels: cmd=read|write|unknown
	DeviceErrors     *prometheus.CounterVec // labels: op=read|write
	DeviceLatency    *prometheus.HistogramVec
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		TCPAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigmatcp_tcp_accept_total",
			Help: "Total accepted TCP connections.",
		}),
		TCPRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigmatcp_tcp_reject_total",
			Help: "TCP connections refused because max-cons was reached.",
		}),
		TCPBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigmatcp_tcp_bytes_received_total",
			Help: "Total bytes received from controllers.",
		}),
		TCPBytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigmatcp_tcp_bytes_sent_total",
			Help: "Total response bytes queued to controllers.",
		}),
		ActiveConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigmatcp_active_connections",
			Help: "Current number of controller connections.",
		}),
		ParseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigmatcp_parse_total",
			Help: "Frame parse attempts by result.",
		}, []string{"result"}),
		CommandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigmatcp_command_total",
			Help: "Parsed commands by kind.",
		}, []string{"cmd"}),
		DeviceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigmatcp_device_errors_total",
			Help: "Device access failures by operation.",
		}, []string{"op"}),
		DeviceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigmatcp_device_seconds",
			Help:    "Device access latency by operation.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"}),
	}
	reg.MustRegister(m.TCPAccepted, m.TCPRejected, m.TCPBytesReceived, m.TCPBytesSent, m.ActiveConns,
		m.ParseTotal, m.CommandTotal, m.DeviceErrors, m.DeviceLatency)
	return m
}
