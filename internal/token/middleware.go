package token

import (
	"context"
	"log/slog"
	"net/http"

	platformMW "healthgate/internal/platform/middleware"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/httputil"
)

// Verifier validates a bearer token and returns its claims.
type Verifier interface {
	Verify(tokenString string) (*Claims, error)
}

type subjectKey struct{}

// SubjectFromContext returns the authenticated subject id, or "" for
// unauthenticated requests.
func SubjectFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok {
		return s
	}
	return ""
}

// WithSubject injects a subject id into a context. Exposed for tests and
// non-HTTP callers.
func WithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subjectID)
}

// RequireAuth returns middleware that rejects requests without a valid
// bearer token and stores the authenticated subject in the context.
func RequireAuth(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := ExtractFromHeader(r.Header.Get("Authorization"))
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "token verification failed",
						"error", err,
						"request_id", platformMW.GetRequestID(ctx),
					)
				}
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(ctx, claims.Subject)))
		})
	}
}

// OptionalAuth stores the subject when a valid bearer token is present and
// passes the request through untouched otherwise. Used on routes where
// anonymous access is allowed but authenticated identities get their own
// rate counters.
func OptionalAuth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := ExtractFromHeader(r.Header.Get("Authorization")); ok {
				if claims, err := verifier.Verify(raw); err == nil {
					r = r.WithContext(WithSubject(r.Context(), claims.Subject))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
