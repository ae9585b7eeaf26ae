// Package handler exposes the audit log to operators over HTTP. Every route
// requires the operator key; reads are plain projections, while cleanup and
// export record their own audit trail.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"healthgate/internal/audit/models"
	"healthgate/internal/audit/service"
	platformMW "healthgate/internal/platform/middleware"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/httputil"
	"healthgate/pkg/secrets"
)

const adminKeyHeader = "X-Admin-Key"

// Handler serves the audit admin API.
type Handler struct {
	service      *service.Service
	adminKeyHash string
	logger       *slog.Logger
}

func New(svc *service.Service, adminKeyHash string, logger *slog.Logger) *Handler {
	return &Handler{
		service:      svc,
		adminKeyHash: adminKeyHash,
		logger:       logger,
	}
}

// Routes returns the router to mount under /admin/audit.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.requireAdminKey)

	r.Get("/", h.list)
	r.Get("/stats", h.stats)
	r.Get("/export", h.export)
	r.Post("/cleanup", h.cleanup)
	r.Get("/{id}/verify", h.verify)

	return r
}

// requireAdminKey gates every admin route on the operator key.
func (h *Handler) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(adminKeyHeader)
		if h.adminKeyHash == "" || key == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "operator key required"))
			return
		}
		if err := secrets.Verify(key, h.adminKeyHash); err != nil {
			h.logger.WarnContext(r.Context(), "operator key rejected",
				"path", r.URL.Path,
				"request_id", platformMW.GetRequestID(r.Context()),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid operator key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.FindMany(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stats, err := h.service.GetStatistics(r.Context(), from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = models.FormatJSON
	}

	payload, contentType, err := h.service.Export(r.Context(), from, to, format)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.recordAdminAction(r, models.ActionAuditExport, map[string]any{"format": format})

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="audit-export.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RetentionDays *int `json:"retention_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RetentionDays == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "retention_days is required"))
		return
	}

	removed, err := h.service.Cleanup(r.Context(), *body.RetentionDays)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.recordAdminAction(r, models.ActionAuditCleanup, map[string]any{
		"retention_days": *body.RetentionDays,
		"removed":        removed,
	})

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "id")

	valid, err := h.service.VerifyIntegrity(r.Context(), entryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entry_id": entryID,
		"valid":    valid,
	})
}

// recordAdminAction appends an audit entry for an admin operation. Failures
// are logged but never fail the admin response; the operation itself already
// committed.
func (h *Handler) recordAdminAction(r *http.Request, action models.Action, details map[string]any) {
	ctx := r.Context()
	_, err := h.service.Append(ctx, models.Record{
		Action:      action,
		SourceIP:    platformMW.GetClientIP(ctx),
		UserAgent:   r.UserAgent(),
		RequestPath: r.URL.Path,
		Method:      r.Method,
		Details:     details,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record admin action",
			"action", action,
			"error", err,
		)
	}
}

func filterFromQuery(r *http.Request) (models.Filter, error) {
	from, to, err := rangeFromQuery(r)
	if err != nil {
		return models.Filter{}, err
	}

	q := r.URL.Query()
	filter := models.Filter{
		ActorID: q.Get("actor_id"),
		Action:  models.Action(q.Get("action")),
		From:    from,
		To:      to,
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return models.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return models.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "offset must be a non-negative integer")
		}
		filter.Offset = offset
	}
	return filter, nil
}

func rangeFromQuery(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "from must be RFC 3339")
		}
	}
	if raw := q.Get("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "to must be RFC 3339")
		}
	}
	return from, to, nil
}
