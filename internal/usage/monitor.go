package usage

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	platformMW "healthgate/internal/platform/middleware"
)

// WarnThreshold is the quota utilization fraction at which the monitor
// starts emitting warnings.
const WarnThreshold = 0.80

var (
	warningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthgate_usage_warnings_total",
			Help: "Quota checks that crossed the usage warning threshold",
		},
		[]string{"bucket"},
	)

	utilization = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthgate_usage_utilization_ratio",
			Help:    "Observed quota utilization per check",
			Buckets: []float64{0.25, 0.5, 0.8, 0.9, 1.0},
		},
		[]string{"bucket"},
	)
)

// Monitor watches per-request quota consumption and warns when an identity
// approaches exhaustion. It never influences the rate-limit decision.
type Monitor struct {
	logger *slog.Logger
}

func NewMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{logger: logger}
}

// Observe records the utilization of a single quota check and logs a warning
// once consumption reaches WarnThreshold of the limit.
func (m *Monitor) Observe(ctx context.Context, bucket, identity string, limit, remaining int) {
	if limit <= 0 {
		return
	}

	used := limit - remaining
	ratio := float64(used) / float64(limit)
	utilization.WithLabelValues(bucket).Observe(ratio)

	if ratio < WarnThreshold {
		return
	}

	warningsTotal.WithLabelValues(bucket).Inc()
	if m.logger == nil {
		return
	}
	m.logger.WarnContext(ctx, "quota nearly exhausted",
		"bucket", bucket,
		"identity", identity,
		"limit", limit,
		"remaining", remaining,
		"utilization", ratio,
		"request_id", platformMW.GetRequestID(ctx),
	)
}
