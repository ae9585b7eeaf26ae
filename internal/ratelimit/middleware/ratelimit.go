package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	platformMW "healthgate/internal/platform/middleware"
	"healthgate/internal/ratelimit/models"
	"healthgate/internal/token"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/httputil"
)

// Limiter is the rate-limit decision surface consumed by the middleware.
type Limiter interface {
	CheckAndConsume(ctx context.Context, bucket models.Bucket, identity string) (*models.Result, error)
	CheckDynamic(ctx context.Context, subjectID string) (*models.Result, error)
}

// UsageObserver receives quota metadata after the response is finalized.
type UsageObserver interface {
	Observe(ctx context.Context, bucket, identity string, limit, remaining int)
}

// Middleware applies quota checks to inbound requests and decorates
// responses with the standard quota headers.
type Middleware struct {
	limiter Limiter
	monitor UsageObserver
	logger  *slog.Logger
}

func New(limiter Limiter, monitor UsageObserver, logger *slog.Logger) *Middleware {
	return &Middleware{
		limiter: limiter,
		monitor: monitor,
		logger:  logger,
	}
}

// RateLimit enforces the static quota for bucket. Identity is the
// authenticated subject when present, the client IP otherwise.
func (m *Middleware) RateLimit(bucket models.Bucket) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity := requestIdentity(ctx)

			result, err := m.limiter.CheckAndConsume(ctx, bucket, identity)
			if err != nil {
				// A limiter error is a config defect, not client behavior;
				// log it and let the request through.
				m.logError(ctx, bucket, err)
				next.ServeHTTP(w, r)
				return
			}

			m.finish(bucket, identity, result, next, w, r)
		})
	}
}

// RateLimitDynamic enforces the tier-based dynamic quota for authenticated
// requests. Mount behind RequireAuth so the subject is present.
func (m *Middleware) RateLimitDynamic() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity := requestIdentity(ctx)

			result, err := m.limiter.CheckDynamic(ctx, identity)
			if err != nil {
				m.logError(ctx, models.BucketAPI, err)
				next.ServeHTTP(w, r)
				return
			}

			m.finish(models.BucketAPI, identity, result, next, w, r)
		})
	}
}

// finish writes quota headers, rejects exhausted requests, and invokes the
// usage observer once the handler has produced its response.
func (m *Middleware) finish(bucket models.Bucket, identity string, result *models.Result, next http.Handler, w http.ResponseWriter, r *http.Request) {
	addRateLimitHeaders(w, result)

	if !result.Allowed {
		writeRateLimitExceeded(w, result)
		m.observe(r.Context(), bucket, identity, result)
		return
	}

	next.ServeHTTP(w, r)

	// Post-response hook: runs once, after the body is finalized.
	m.observe(r.Context(), bucket, identity, result)
}

func (m *Middleware) observe(ctx context.Context, bucket models.Bucket, identity string, result *models.Result) {
	if m.monitor != nil {
		m.monitor.Observe(ctx, string(bucket), identity, result.Limit, result.Remaining)
	}
}

func (m *Middleware) logError(ctx context.Context, bucket models.Bucket, err error) {
	if m.logger != nil {
		m.logger.ErrorContext(ctx, "rate limit check failed",
			"bucket", bucket,
			"error", err,
			"request_id", platformMW.GetRequestID(ctx),
		)
	}
}

// requestIdentity picks the counter identity: authenticated subject first,
// then client IP, then the anonymous sentinel.
func requestIdentity(ctx context.Context) string {
	if subject := token.SubjectFromContext(ctx); subject != "" {
		return subject
	}
	if ip := platformMW.GetClientIP(ctx); ip != "" {
		return ip
	}
	return models.IdentityAnonymous
}

// addRateLimitHeaders decorates the response with quota metadata regardless
// of outcome.
func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteError(w, dErrors.New(dErrors.CodeQuotaExceeded,
		"rate limit exceeded, retry in "+strconv.Itoa(result.RetryAfter)+"s"))
}
