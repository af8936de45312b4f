package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AdmissionMetrics tracks the admission pipeline.
//
// Metrics:
//   - forge_admissions_total: decisions by step and outcome
//   - forge_result_cache_total: result cache hits and misses
//   - forge_quota_refunds_total: quota compensations after failed streams
type AdmissionMetrics struct {
	decisionsTotal *prometheus.CounterVec
	cacheTotal     *prometheus.CounterVec
	refundsTotal   prometheus.Counter
}

// NewAdmissionMetrics creates and registers admission metrics with the
// provided registry.
func NewAdmissionMetrics(cfg Config, registry *prometheus.Registry) *AdmissionMetrics {
	am := &AdmissionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "admissions_total",
				Help:      "Admission pipeline decisions by step and outcome",
			},
			[]string{"step", "outcome"},
		),

		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "result_cache_total",
				Help:      "Result cache lookups by result",
			},
			[]string{"result"},
		),

		refundsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "quota_refunds_total",
				Help:      "Quota units refunded after failed streams",
			},
		),
	}

	registry.MustRegister(
		am.decisionsTotal,
		am.cacheTotal,
		am.refundsTotal,
	)

	return am
}

// RecordDecision records one admission decision.
func (am *AdmissionMetrics) RecordDecision(step, outcome string) {
	am.decisionsTotal.WithLabelValues(step, outcome).Inc()
}

// RecordCache records a result cache lookup result ("hit" or "miss").
func (am *AdmissionMetrics) RecordCache(result string) {
	am.cacheTotal.WithLabelValues(result).Inc()
}

// RecordRefund records a quota compensation.
func (am *AdmissionMetrics) RecordRefund() {
	am.refundsTotal.Inc()
}
