package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthgate/pkg/requesttime"
)

func TestRequireAuth(t *testing.T) {
	m := testManager()

	var seenSubject string
	protected := RequireAuth(m, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSubject = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token passes and exposes subject", func(t *testing.T) {
		signed, err := m.Issue(context.Background(), "subject-42", "")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "subject-42", seenSubject)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "unauthorized")
	})

	t.Run("expired token is rejected with its code", func(t *testing.T) {
		past := requesttime.WithTime(context.Background(), time.Now().Add(-8*24*time.Hour))
		signed, err := m.Issue(past, "subject-42", "")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "token_expired")
	})
}

func TestOptionalAuth(t *testing.T) {
	m := testManager()

	var seenSubject string
	handler := OptionalAuth(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSubject = SubjectFromContext(r.Context())
	}))

	t.Run("anonymous requests pass through", func(t *testing.T) {
		seenSubject = "sentinel"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, seenSubject)
	})

	t.Run("valid token sets the subject", func(t *testing.T) {
		signed, err := m.Issue(context.Background(), "subject-42", "")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "subject-42", seenSubject)
	})
}
