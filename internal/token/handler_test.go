package token

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditmodels "healthgate/internal/audit/models"
	"healthgate/pkg/requesttime"
)

type recordingAuditor struct {
	records []auditmodels.Record
}

func (a *recordingAuditor) Append(_ context.Context, rec auditmodels.Record) (*auditmodels.Entry, error) {
	a.records = append(a.records, rec)
	return &auditmodels.Entry{}, nil
}

func TestRefreshHandler(t *testing.T) {
	manager := NewManager(Config{
		SigningKey: "test-signing-key",
		Issuer:     "healthgate",
		Audience:   "healthgate-api",
	})
	auditor := &recordingAuditor{}
	handler := NewHandler(manager, auditor, slog.New(slog.NewTextHandler(io.Discard, nil)))

	original, err := manager.Issue(context.Background(), "patient-42", "p42@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+original)
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
	assert.Contains(t, rec.Body.String(), `"expires_at"`)

	require.Len(t, auditor.records, 1)
	assert.Equal(t, auditmodels.ActionTokenRefresh, auditor.records[0].Action)
	assert.Equal(t, "patient-42", auditor.records[0].ActorID)
}

func TestRefreshHandlerMissingToken(t *testing.T) {
	manager := NewManager(Config{SigningKey: "test-signing-key"})
	handler := NewHandler(manager, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	handler.Refresh(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshHandlerExpiredToken(t *testing.T) {
	manager := NewManager(Config{
		SigningKey: "test-signing-key",
		Issuer:     "healthgate",
		Audience:   "healthgate-api",
	})
	handler := NewHandler(manager, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Issued far enough in the past that the default lifetime has lapsed.
	past := requesttime.WithTime(context.Background(), time.Now().Add(-8*24*time.Hour))
	expired, err := manager.Issue(past, "patient-42", "p42@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token_expired")
}
