// Package metrics provides observability for the policy module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks policy publish and lookup activity.
type Metrics struct {
	PublishesTotal    prometheus.Counter
	ActiveLookupTotal *prometheus.CounterVec
}

// New registers and returns the policy module metrics.
func New() *Metrics {
	return &Metrics{
		PublishesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_policy_publishes_total",
			Help: "Total policy versions published",
		}),
		ActiveLookupTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_policy_active_lookups_total",
			Help: "Active policy version lookups by result",
		}, []string{"result"}), // result: "cache_hit", "store_hit", "none"
	}
}

// IncrementPublished records a successful publish.
func (m *Metrics) IncrementPublished() {
	if m != nil {
		m.PublishesTotal.Inc()
	}
}

// IncrementLookup records an active-version lookup outcome.
func (m *Metrics) IncrementLookup(result string) {
	if m != nil {
		m.ActiveLookupTotal.WithLabelValues(result).Inc()
	}
}
