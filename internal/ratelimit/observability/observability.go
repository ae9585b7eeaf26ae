// Package observability bridges rate-limit denials into the audit log.
package observability

import (
	"context"
	"log/slog"

	auditmodels "healthgate/internal/audit/models"
	platformMW "healthgate/internal/platform/middleware"
	"healthgate/internal/ratelimit/models"
)

// AuditAppender is the audit service surface the recorder needs.
type AuditAppender interface {
	Append(ctx context.Context, rec auditmodels.Record) (*auditmodels.Entry, error)
}

// AuditRecorder records quota denials as rate_limit_exceeded audit entries.
// It satisfies the rate-limit service's DenialRecorder interface.
type AuditRecorder struct {
	appender AuditAppender
	logger   *slog.Logger
}

func NewAuditRecorder(appender AuditAppender, logger *slog.Logger) *AuditRecorder {
	return &AuditRecorder{appender: appender, logger: logger}
}

// RecordDenial appends the denial to the audit log. An append failure is
// logged and swallowed; the 429 must not depend on audit availability.
func (r *AuditRecorder) RecordDenial(ctx context.Context, bucket models.Bucket, identity string, limit int) {
	_, err := r.appender.Append(ctx, auditmodels.Record{
		Action:   auditmodels.ActionRateLimitExceeded,
		ActorID:  identity,
		SourceIP: platformMW.GetClientIP(ctx),
		Details: map[string]any{
			"bucket": string(bucket),
			"limit":  limit,
		},
	})
	if err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "failed to audit rate limit denial",
			"bucket", bucket,
			"identity", identity,
			"error", err,
		)
	}
}
