package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BridgeMetrics is the bridge engine's own Prometheus surface: one
// counter per completed route request, a duration histogram, and a
// token counter split by direction, carrying the route, outcome,
// latency and token figures of the engine's request-log record.
type BridgeMetrics struct {
	// RequestsTotal counts completed route requests.
	// Labels: route, status (ok|error)
	RequestsTotal *prometheus.CounterVec

	// RequestDuration measures end-to-end route latency in seconds.
	// Labels: route
	RequestDuration *prometheus.HistogramVec

	// TokensTotal accumulates token usage reported by upstream.
	// Labels: route, direction (prompt|completion)
	TokensTotal *prometheus.CounterVec
}

var (
	bridgeMetricsOnce sync.Once
	bridgeMetrics     *BridgeMetrics
)

// NewBridgeMetrics registers the bridge's Prometheus collectors with the
// default registry on its first call and returns that same instance on
// every later call, since registering a metric name twice panics.
func NewBridgeMetrics() *BridgeMetrics {
	bridgeMetricsOnce.Do(func() { bridgeMetrics = newBridgeMetrics() })
	return bridgeMetrics
}

func newBridgeMetrics() *BridgeMetrics {
	return &BridgeMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_requests_total",
				Help: "Total number of bridge route requests by outcome.",
			},
			[]string{"route", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_request_duration_seconds",
				Help:    "End-to-end bridge route request duration in seconds.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"route"},
		),
		TokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_tokens_total",
				Help: "Total tokens reported by upstream per route and direction.",
			},
			[]string{"route", "direction"},
		),
	}
}

// RecordRequest records one completed route request's outcome, latency,
// and token usage in a single call, mirroring the request log record
// the engine emits alongside it (spec §6.5).
func (m *BridgeMetrics) RecordRequest(route, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(durationSeconds)
	if promptTokens > 0 {
		m.TokensTotal.WithLabelValues(route, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.TokensTotal.WithLabelValues(route, "completion").Add(float64(completionTokens))
	}
}
