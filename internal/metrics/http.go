package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTP holds the collectors for the observability server's own traffic.
// Like Stress, a nil *HTTP is valid and records nothing, so handler tests
// can run without a registry.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP creates the HTTP collectors and registers them with reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	h := &HTTP{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magma_http_requests_total",
				Help: "Requests served by the observability endpoints.",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "magma_http_request_duration_seconds",
				Help:    "Latency of the observability endpoints in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(h.requests, h.duration)
	return h
}

// ObserveRequest records one served request.
func (h *HTTP) ObserveRequest(method, path string, status int, seconds float64) {
	if h == nil {
		return
	}
	h.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	h.duration.WithLabelValues(method, path).Observe(seconds)
}
