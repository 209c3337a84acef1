package vault

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records request counts and latencies for a transport. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewMetrics registers the client metrics with reg. A nil reg yields unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_client_requests_total",
			Help: "Total number of requests that received an HTTP response, by method and status code",
		}, []string{"method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_client_request_duration_seconds",
			Help:    "Round trip time of requests that received an HTTP response",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_client_transport_failures_total",
			Help: "Total number of requests that failed before an HTTP response was received",
		}, []string{"method"}),
	}
}

func (m *Metrics) observe(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) observeFailure(method string) {
	if m == nil {
		return
	}

	m.failures.WithLabelValues(method).Inc()
}
