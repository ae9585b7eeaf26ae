// Package httptransport assembles the HTTP surface: middleware stack, public
// endpoints, the authenticated API group, and the audit admin mount. It holds
// no business logic; every route delegates to a domain service.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "healthgate/internal/audit/handler"
	"healthgate/internal/platform/middleware"
	ratelimitMW "healthgate/internal/ratelimit/middleware"
	"healthgate/internal/ratelimit/models"
	"healthgate/internal/token"
	"healthgate/pkg/httputil"
	"healthgate/pkg/requesttime"
)

// HealthChecker reports the reachability of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs. AuditHandler may be nil when no
// operator key is configured; Health checks may be empty.
type Deps struct {
	Logger       *slog.Logger
	TokenManager *token.Manager
	TokenHandler *token.Handler
	RateLimit    *ratelimitMW.Middleware
	AuditHandler *audithandler.Handler
	Health       map[string]HealthChecker
}

// NewRouter wires all endpoints with the shared middleware stack. Order
// matters: recovery outermost, then request id and request time so every
// later layer, including rate limiting and audit, sees them.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/healthz", healthz(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.RateLimit(models.BucketGeneral))
		r.Get("/", handleIndex)
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.RateLimit(models.BucketAuth))
		r.Post("/auth/refresh", deps.TokenHandler.Refresh)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(token.RequireAuth(deps.TokenManager, deps.Logger))
		r.Use(deps.RateLimit.RateLimitDynamic())
		r.Get("/me", handleMe)
	})

	if deps.AuditHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimit.RateLimit(models.BucketSensitive))
			r.Mount("/admin/audit", deps.AuditHandler.Routes())
		})
	}

	return r
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"service": "healthgate",
	})
}

func handleMe(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"subject_id": token.SubjectFromContext(r.Context()),
	})
}

// healthz reports each dependency's reachability; 503 when any check fails.
func healthz(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Health(r.Context()); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": report,
		})
	}
}
