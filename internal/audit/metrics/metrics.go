package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AuditAppendsTotal         *prometheus.CounterVec
	AuditAppendRetriesTotal   prometheus.Counter
	AuditChainConflictsTotal  prometheus.Counter
	AuditIntegrityChecksTotal *prometheus.CounterVec
	AuditCleanupRunsTotal     prometheus.Counter
	AuditCleanupRemovedTotal  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		AuditAppendsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthgate_audit_appends_total",
			Help: "Total audit append attempts by outcome",
		}, []string{"outcome"}),
		AuditAppendRetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthgate_audit_append_retries_total",
			Help: "Total append retries after a chain conflict",
		}),
		AuditChainConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthgate_audit_chain_conflicts_total",
			Help: "Total compare-and-swap losses on the chain head",
		}),
		AuditIntegrityChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthgate_audit_integrity_checks_total",
			Help: "Total integrity verifications by result",
		}, []string{"result"}),
		AuditCleanupRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthgate_audit_cleanup_runs_total",
			Help: "Total retention cleanup executions",
		}),
		AuditCleanupRemovedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthgate_audit_cleanup_removed_total",
			Help: "Total entries removed by retention cleanup",
		}),
	}
}

func (m *Metrics) RecordAppend(succeeded bool) {
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	m.AuditAppendsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordAppendRetry() {
	m.AuditAppendRetriesTotal.Inc()
}

func (m *Metrics) RecordChainConflict() {
	m.AuditChainConflictsTotal.Inc()
}

func (m *Metrics) RecordIntegrityCheck(valid bool) {
	result := "valid"
	if !valid {
		result = "mismatch"
	}
	m.AuditIntegrityChecksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordCleanup(removed int64) {
	m.AuditCleanupRunsTotal.Inc()
	m.AuditCleanupRemovedTotal.Add(float64(removed))
}
