package webhook

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountOutcomes(t *testing.T) {
	m := NewMetrics()
	ts, _ := newTestServer(t, m)

	body := `{"a":1}`
	sig := referenceSignature("sk_test", []byte(body))

	send := func(method, signature string) {
		req, err := http.NewRequest(method, ts.URL+"/m", strings.NewReader(body))
		require.NoError(t, err)
		if signature != "" {
			req.Header.Set(SignatureHeader, signature)
		}
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	send("POST", "sha256="+sig)
	send("POST", "sha256="+sig)
	send("POST", "sha256=00")
	send("PURGE", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.verificationsTotal.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verificationsTotal.WithLabelValues("failed_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verificationsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("OTHER", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestsInFlight))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.observe("passed", 7)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	data, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `hookprobe_verifications_total{outcome="passed"} 1`)
	assert.Contains(t, string(data), "hookprobe_body_bytes_bucket")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.observe("passed", 1)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := m.middleware(next)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodLabel(t *testing.T) {
	assert.Equal(t, "GET", methodLabel("GET"))
	assert.Equal(t, "OPTIONS", methodLabel("OPTIONS"))
	assert.Equal(t, "OTHER", methodLabel("PURGE"))
	assert.Equal(t, "OTHER", methodLabel("get"))
}
