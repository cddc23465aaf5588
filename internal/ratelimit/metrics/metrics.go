package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions   *prometheus.CounterVec
	StoreErrors *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_decisions_total",
			Help: "Rate limit decisions by endpoint class and result",
		}, []string{"class", "result"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_store_errors_total",
			Help: "Bucket store failures; requests are let through when this happens",
		}, []string{"class"}),
	}
}

func (m *Metrics) IncrementDecision(class string, allowed bool) {
	if m == nil {
		return
	}
	result := "limited"
	if allowed {
		result = "allowed"
	}
	m.Decisions.WithLabelValues(class, result).Inc()
}

func (m *Metrics) IncrementStoreError(class string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(class).Inc()
}
