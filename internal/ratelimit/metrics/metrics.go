package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitDecisionsTotal     *prometheus.CounterVec
	RateLimitDegradedTotal      prometheus.Counter
	RateLimitStoreErrorsTotal   prometheus.Counter
	RateLimitThrottleDropsTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RateLimitDecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthgate_ratelimit_decisions_total",
			Help: "Total rate limit decisions by bucket and outcome",
		}, []string{"bucket", "outcome"}),
		RateLimitDegradedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthgate_ratelimit_degraded_checks_total",
			Help: "Total checks decided under the outage policy while the counter store was unreachable",
		}),
		RateLimitStoreErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthgate_ratelimit_store_errors_total",
			Help: "Total counter store failures observed by the limiter",
		}),
		RateLimitThrottleDropsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthgate_ratelimit_throttle_drops_total",
			Help: "Total requests dropped by the degraded-mode local throttle",
		}),
	}
}

func (m *Metrics) RecordDecision(bucket string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.RateLimitDecisionsTotal.WithLabelValues(bucket, outcome).Inc()
}

func (m *Metrics) RecordDegraded() {
	m.RateLimitDegradedTotal.Inc()
}

func (m *Metrics) RecordStoreError() {
	m.RateLimitStoreErrorsTotal.Inc()
}

func (m *Metrics) RecordThrottleDrop() {
	m.RateLimitThrottleDropsTotal.Inc()
}
