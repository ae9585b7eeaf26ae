package models

import "time"

// Action classifies an audit entry. Actions are stable wire strings; renaming
// one invalidates stored statistics groupings, so treat them as append-only.
type Action string

const (
	ActionLoginSuccess       Action = "login_success"
	ActionLoginFailure       Action = "login_failure"
	ActionLogout             Action = "logout"
	ActionTokenRefresh       Action = "token_refresh"
	ActionUnauthorizedAccess Action = "unauthorized_access"
	ActionPermissionDenied   Action = "permission_denied"
	ActionRateLimitExceeded  Action = "rate_limit_exceeded"

	ActionRecordView   Action = "record_view"
	ActionRecordCreate Action = "record_create"
	ActionRecordUpdate Action = "record_update"
	ActionRecordDelete Action = "record_delete"
	ActionRecordExport Action = "record_export"

	ActionAuditCleanup Action = "audit_cleanup"
	ActionAuditExport  Action = "audit_export"
)

// IsSecurityEvent reports whether the action counts toward the
// security-event statistic.
func (a Action) IsSecurityEvent() bool {
	switch a {
	case ActionLoginFailure, ActionUnauthorizedAccess, ActionPermissionDenied, ActionRateLimitExceeded:
		return true
	}
	return false
}

// IsDataAccess reports whether the action counts toward the
// data-access statistic.
func (a Action) IsDataAccess() bool {
	switch a {
	case ActionRecordView, ActionRecordCreate, ActionRecordUpdate, ActionRecordDelete, ActionRecordExport:
		return true
	}
	return false
}

// Entry is one committed audit record. Once persisted it is immutable except
// for removal by retention pruning; IntegrityHash chains it to its
// predecessor.
type Entry struct {
	ID            string         `json:"id"`
	Seq           int64          `json:"seq"`
	Timestamp     time.Time      `json:"timestamp"`
	Action        Action         `json:"action"`
	ActorID       string         `json:"actor_id,omitempty"`
	SourceIP      string         `json:"source_ip"`
	UserAgent     string         `json:"user_agent"`
	RequestPath   string         `json:"request_path"`
	Method        string         `json:"method"`
	Details       map[string]any `json:"details,omitempty"`
	IntegrityHash string         `json:"integrity_hash"`
}

// Record is the caller-supplied portion of an entry. The service fills in
// identity, sequence, and the chain hash. A zero Timestamp means the service
// stamps the request-scoped clock.
type Record struct {
	Timestamp   time.Time
	Action      Action
	ActorID     string
	SourceIP    string
	UserAgent   string
	RequestPath string
	Method      string
	Details     map[string]any
}

// Filter narrows a findMany query. Zero values mean "no constraint";
// Limit<=0 falls back to a server default.
type Filter struct {
	ActorID string
	Action  Action
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

// ActionCount pairs an action with its occurrence count for statistics.
type ActionCount struct {
	Action Action `json:"action"`
	Count  int64  `json:"count"`
}

// Statistics aggregates the log over an optional date range.
type Statistics struct {
	TotalLogs          int64         `json:"total_logs"`
	SecurityEventCount int64         `json:"security_event_count"`
	DataAccessCount    int64         `json:"data_access_count"`
	UniqueActors       int64         `json:"unique_actors"`
	TopActions         []ActionCount `json:"top_actions"`
}

// Export formats accepted by the export projection.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)
