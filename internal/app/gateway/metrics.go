package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	decodeWarnings *prometheus.CounterVec
}

// NewMetrics registers the gateway collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mmoclient",
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Completed gateway operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mmoclient",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "HTTP exchange latency, including rate limiter waits.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		decodeWarnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mmoclient",
			Subsystem: "gateway",
			Name:      "decode_warnings_total",
			Help:      "Response fields replaced with defaults.",
		}, []string{"operation"}),
	}
}

func (m *Metrics) countOutcome(op, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) observeDuration(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) countDecodeWarning(op string) {
	if m == nil {
		return
	}
	m.decodeWarnings.WithLabelValues(op).Inc()
}
