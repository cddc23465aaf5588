package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for verification execution.
type Metrics struct {
	Outcomes        *prometheus.CounterVec
	Denied          *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_verification_outcomes_total",
			Help: "Classified verification outcomes by service and cause",
		}, []string{"service_key", "classification", "cause"}),

		Denied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_verification_denied_total",
			Help: "Verification attempts rejected for missing entitlement",
		}, []string{"service_key"}),

		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_verification_provider_duration_seconds",
			Help:    "Duration of upstream provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service_key"}),

		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_verification_provider_errors_total",
			Help: "Provider transport failures by kind",
		}, []string{"kind"}), // kind: "timeout", "upstream", "breaker_open", "transport"

		BreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kycgate_verification_breaker_state",
			Help: "Provider circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),
	}
}

func (m *Metrics) IncrementOutcome(serviceKey, classification, cause string) {
	if m != nil {
		m.Outcomes.WithLabelValues(serviceKey, classification, cause).Inc()
	}
}

func (m *Metrics) IncrementDenied(serviceKey string) {
	if m != nil {
		m.Denied.WithLabelValues(serviceKey).Inc()
	}
}

func (m *Metrics) ObserveProviderLatency(serviceKey string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(serviceKey).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementProviderError(kind string) {
	if m != nil {
		m.ProviderErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m != nil {
		m.BreakerState.WithLabelValues(name).Set(float64(state))
	}
}
