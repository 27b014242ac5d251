package gate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for admission decisions and quota state.
type Metrics struct {
	admissions    *prometheus.CounterVec
	denials       *prometheus.CounterVec
	waitDuration  *prometheus.HistogramVec
	quotaTokens   *prometheus.GaugeVec
	quotaCapacity *prometheus.GaugeVec
}

// NewMetrics creates metrics registered on the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates metrics registered on a custom registerer.
// Tests should pass a fresh prometheus.NewRegistry().
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		admissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saturn_gate_admissions_total",
				Help: "Total number of admission decisions by operation and result",
			},
			[]string{"operation", "result"},
		),

		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saturn_gate_denials_total",
				Help: "Total number of denied operations",
			},
			[]string{"operation"},
		),

		waitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "saturn_gate_wait_duration_seconds",
				Help:    "Time spent waiting for quota tokens",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			},
			[]string{"operation"},
		),

		quotaTokens: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "saturn_gate_quota_available_tokens",
				Help: "Current available tokens per quota",
			},
			[]string{"quota"},
		),

		quotaCapacity: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "saturn_gate_quota_max_tokens",
				Help: "Configured capacity per quota",
			},
			[]string{"quota"},
		),
	}
}

// RecordAdmission records one admission decision.
func (m *Metrics) RecordAdmission(operation string, allowed bool, wait time.Duration) {
	result := "allowed"
	if !allowed {
		result = "denied"
		m.denials.WithLabelValues(operation).Inc()
	}
	m.admissions.WithLabelValues(operation, result).Inc()
	m.waitDuration.WithLabelValues(operation).Observe(wait.Seconds())
}

// UpdateQuota updates the per-quota gauges from a status snapshot.
func (m *Metrics) UpdateQuota(quota string, available float64, capacity int64) {
	m.quotaTokens.WithLabelValues(quota).Set(available)
	m.quotaCapacity.WithLabelValues(quota).Set(float64(capacity))
}
