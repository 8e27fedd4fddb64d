package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide Prometheus metrics. Domain-specific metrics live
// next to their domain (see internal/credential/metrics).
type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	RateLimited     *prometheus.CounterVec
}

// New creates and registers all process-wide Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatepass_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		RateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_rate_limited_total",
			Help: "Requests rejected by the scan rate limiter, labeled by scanner",
		}, []string{"scanner"}),
	}
}
