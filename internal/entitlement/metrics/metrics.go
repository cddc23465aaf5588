package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for entitlement resolution.
type Metrics struct {
	CacheResults    *prometheus.CounterVec
	AccessDecisions *prometheus.CounterVec
	ResolveLatency  prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		CacheResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_entitlement_cache_results_total",
			Help: "Entitlement cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error", "stale"

		AccessDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_entitlement_access_decisions_total",
			Help: "Service access decisions by outcome and purchase target kind",
		}, []string{"allowed", "target"}),

		ResolveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_entitlement_resolve_duration_seconds",
			Help:    "Duration of loading inputs and resolving an entitlement set",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementCache(result string) {
	if m != nil {
		m.CacheResults.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementAccess(allowed bool, target string) {
	if m == nil {
		return
	}
	label := "false"
	if allowed {
		label = "true"
	}
	m.AccessDecisions.WithLabelValues(label, target).Inc()
}

func (m *Metrics) ObserveResolveLatency(d time.Duration) {
	if m != nil {
		m.ResolveLatency.Observe(d.Seconds())
	}
}
