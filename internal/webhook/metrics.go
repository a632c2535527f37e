package webhook

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the inspector. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	verificationsTotal *prometheus.CounterVec
	bodyBytes          prometheus.Histogram
	requestsInFlight   prometheus.Gauge
}

// NewMetrics creates the metrics on a registry of their own.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hookprobe",
				Name:      "requests_total",
				Help:      "Total number of inspected HTTP requests",
			},
			[]string{"method", "status"},
		),
		verificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hookprobe",
				Name:      "verifications_total",
				Help:      "Signature verification outcomes",
			},
			[]string{"outcome"},
		),
		bodyBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "hookprobe",
				Name:      "body_bytes",
				Help:      "Size of received request bodies in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
		),
		requestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "hookprobe",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
	}

	m.registry.MustRegister(m.requestsTotal, m.verificationsTotal, m.bodyBytes, m.requestsInFlight)

	return m
}

// Handler returns the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// middleware counts requests by method and final status.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(methodLabel(r.Method), strconv.Itoa(status)).Inc()
	})
}

func (m *Metrics) observe(outcome string, bodySize int) {
	if m == nil {
		return
	}
	m.verificationsTotal.WithLabelValues(outcome).Inc()
	m.bodyBytes.Observe(float64(bodySize))
}

// methodLabel keeps the method label bounded; any method is accepted on the wire.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return method
	default:
		return "OTHER"
	}
}

func newMetricsServer(listen string, m *Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
