package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for credential operations.
type Metrics struct {
	TokensIssued         prometheus.Counter
	TokensRevoked        prometheus.Counter
	Verifications        *prometheus.CounterVec
	Denials              *prometheus.CounterVec
	VerifyDurationMs     prometheus.Histogram
	UseRecordingFailures prometheus.Counter
	AuditAppendFailures  prometheus.Counter
	SchemaInferences     prometheus.Counter
	FeedPublishesDropped prometheus.Counter
}

// New registers and returns credential metrics collectors.
func New() *Metrics {
	return &Metrics{
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_tokens_issued_total",
			Help: "Total number of credential tokens issued",
		}),
		TokensRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_tokens_revoked_total",
			Help: "Total number of credential tokens revoked",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_verifications_total",
			Help: "Total number of verification attempts by decision",
		}, []string{"decision"}),
		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_denials_total",
			Help: "Total number of denied verifications by reason",
		}, []string{"reason"}),
		VerifyDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatepass_verify_duration_ms",
			Help:    "Duration of the full verification pipeline in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		UseRecordingFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_use_recording_failures_total",
			Help: "Total number of best-effort usage increments that failed after a granted decision",
		}),
		AuditAppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_audit_append_failures_total",
			Help: "Total number of access event appends that failed",
		}),
		SchemaInferences: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_schema_inferences_total",
			Help: "Total number of roster schemas inferred from subject data",
		}),
		FeedPublishesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_feed_publishes_dropped_total",
			Help: "Total number of access events dropped by the ops feed buffer",
		}),
	}
}

// All methods tolerate a nil receiver so callers that run without metrics
// (tests, CLI tooling) need no guards.

func (m *Metrics) IncrementTokensIssued() {
	if m == nil {
		return
	}
	m.TokensIssued.Inc()
}

func (m *Metrics) IncrementTokensRevoked() {
	if m == nil {
		return
	}
	m.TokensRevoked.Inc()
}

func (m *Metrics) ObserveVerification(granted bool, reason string, durationMs float64) {
	if m == nil {
		return
	}
	decision := "denied"
	if granted {
		decision = "granted"
	}
	m.Verifications.WithLabelValues(decision).Inc()
	if !granted {
		m.Denials.WithLabelValues(reason).Inc()
	}
	m.VerifyDurationMs.Observe(durationMs)
}

func (m *Metrics) IncrementUseRecordingFailures() {
	if m == nil {
		return
	}
	m.UseRecordingFailures.Inc()
}

func (m *Metrics) IncrementAuditAppendFailures() {
	if m == nil {
		return
	}
	m.AuditAppendFailures.Inc()
}

func (m *Metrics) IncrementSchemaInferences() {
	if m == nil {
		return
	}
	m.SchemaInferences.Inc()
}

func (m *Metrics) IncrementFeedPublishesDropped() {
	if m == nil {
		return
	}
	m.FeedPublishesDropped.Inc()
}
