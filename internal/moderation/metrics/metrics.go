// Package metrics provides observability for the moderation module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks evaluation and override activity.
type Metrics struct {
	EvaluationsTotal  *prometheus.CounterVec
	OverridesTotal    *prometheus.CounterVec
	FallbacksTotal    prometheus.Counter
	EvaluationSeconds prometheus.Histogram
}

// New registers and returns the moderation module metrics.
func New() *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_moderation_evaluations_total",
			Help: "Artifact evaluations by resulting decision",
		}, []string{"decision", "target_type"}),
		OverridesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_moderation_overrides_total",
			Help: "Manual decision overrides by new decision",
		}, []string{"decision"}),
		FallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_moderation_ai_fallbacks_total",
			Help: "Evaluations that fell back to pending_review after a provider failure",
		}),
		EvaluationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_moderation_evaluation_duration_seconds",
			Help:    "End-to-end artifact evaluation latency",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncrementEvaluated records one completed evaluation.
func (m *Metrics) IncrementEvaluated(decision, targetType string) {
	if m != nil {
		m.EvaluationsTotal.WithLabelValues(decision, targetType).Inc()
	}
}

// IncrementOverride records one manual override.
func (m *Metrics) IncrementOverride(decision string) {
	if m != nil {
		m.OverridesTotal.WithLabelValues(decision).Inc()
	}
}

// IncrementFallback records a provider-failure fallback.
func (m *Metrics) IncrementFallback() {
	if m != nil {
		m.FallbacksTotal.Inc()
	}
}

// ObserveEvaluation records evaluation latency.
func (m *Metrics) ObserveEvaluation(seconds float64) {
	if m != nil {
		m.EvaluationSeconds.Observe(seconds)
	}
}
