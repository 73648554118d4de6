package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	m.ParseTotal.WithLabelValues("ok").Inc()
	m.ParseTotal.WithLabelValues("ok").Inc()
	m.CommandTotal.WithLabelValues("read").Inc()
	m.TCPBytesReceived.Add(14)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ParseTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandTotal.WithLabelValues("read")))
	assert.Equal(t, 14.0, testutil.ToFloat64(m.TCPBytesReceived))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sigmatcp_parse_total")
	assert.Contains(t, string(body), "go_goroutines")
}
