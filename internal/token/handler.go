package token

import (
	"context"
	"log/slog"
	"net/http"

	auditmodels "healthgate/internal/audit/models"
	platformMW "healthgate/internal/platform/middleware"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/httputil"
)

// Auditor records token lifecycle events; typically the audit service.
type Auditor interface {
	Append(ctx context.Context, rec auditmodels.Record) (*auditmodels.Entry, error)
}

// Handler serves the token refresh endpoint.
type Handler struct {
	manager *Manager
	auditor Auditor
	logger  *slog.Logger
}

func NewHandler(manager *Manager, auditor Auditor, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		auditor: auditor,
		logger:  logger,
	}
}

// Refresh exchanges a valid bearer token for a fresh one. An expired or
// malformed token is rejected with the same errors as verification; refresh
// never revives a dead token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, ok := ExtractFromHeader(r.Header.Get("Authorization"))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}

	refreshed, err := h.manager.Refresh(ctx, raw)
	if err != nil {
		h.logger.WarnContext(ctx, "token refresh rejected",
			"error", err,
			"request_id", platformMW.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	claims, err := h.manager.Verify(refreshed)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.audit(r, claims.SubjectID())

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      refreshed,
		"expires_at": claims.ExpiresAt.Time,
	})
}

func (h *Handler) audit(r *http.Request, subjectID string) {
	if h.auditor == nil {
		return
	}
	ctx := r.Context()
	_, err := h.auditor.Append(ctx, auditmodels.Record{
		Action:      auditmodels.ActionTokenRefresh,
		ActorID:     subjectID,
		SourceIP:    platformMW.GetClientIP(ctx),
		UserAgent:   r.UserAgent(),
		RequestPath: r.URL.Path,
		Method:      r.Method,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to audit token refresh",
			"subject_id", subjectID,
			"error", err,
		)
	}
}
