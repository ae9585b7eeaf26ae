package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"healthgate/internal/audit/models"
	"healthgate/internal/audit/service"
	"healthgate/internal/audit/store"
	"healthgate/pkg/requesttime"
	"healthgate/pkg/secrets"
)

const adminKey = "test-operator-key"

type HandlerSuite struct {
	suite.Suite
	svc    *service.Service
	router chi.Router
	now    time.Time
}

func (s *HandlerSuite) SetupTest() {
	svc, err := service.New(store.NewInMemoryStore())
	s.Require().NoError(err)
	s.svc = svc

	hash, err := secrets.Hash(adminKey)
	s.Require().NoError(err)

	h := New(svc, hash, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	s.router.Mount("/admin/audit", h.Routes())

	// Cleanup measures retention against the wall clock, so fixtures are
	// stamped relative to it.
	s.now = time.Now().UTC()
}

func (s *HandlerSuite) append(action models.Action, actor string, ts time.Time) *models.Entry {
	ctx := requesttime.WithTime(context.Background(), s.now)
	entry, err := s.svc.Append(ctx, models.Record{
		Timestamp:   ts,
		Action:      action,
		ActorID:     actor,
		SourceIP:    "203.0.113.9",
		RequestPath: "/records",
		Method:      "GET",
	})
	s.Require().NoError(err)
	return entry
}

func (s *HandlerSuite) do(method, target, body string, authorized bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if authorized {
		req.Header.Set("X-Admin-Key", adminKey)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestRequiresOperatorKey() {
	s.append(models.ActionRecordView, "patient-1", s.now)

	rec := s.do(http.MethodGet, "/admin/audit", "", false)
	s.Equal(http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/audit", nil)
	req.Header.Set("X-Admin-Key", "wrong-key")
	wrongRec := httptest.NewRecorder()
	s.router.ServeHTTP(wrongRec, req)
	s.Equal(http.StatusUnauthorized, wrongRec.Code)
}

func (s *HandlerSuite) TestListWithFilter() {
	s.append(models.ActionRecordView, "patient-1", s.now.Add(-time.Hour))
	s.append(models.ActionLoginFailure, "patient-2", s.now.Add(-30*time.Minute))

	rec := s.do(http.MethodGet, "/admin/audit?actor_id=patient-2", "", true)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"count":1`)
	s.Contains(rec.Body.String(), "login_failure")
}

func (s *HandlerSuite) TestListRejectsBadQuery() {
	rec := s.do(http.MethodGet, "/admin/audit?limit=abc", "", true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/admin/audit?from=not-a-time", "", true)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestStats() {
	s.append(models.ActionRecordView, "patient-1", s.now.Add(-time.Hour))
	s.append(models.ActionLoginFailure, "patient-2", s.now.Add(-30*time.Minute))

	rec := s.do(http.MethodGet, "/admin/audit/stats", "", true)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"total_logs":2`)
	s.Contains(rec.Body.String(), `"security_event_count":1`)
}

func (s *HandlerSuite) TestVerify() {
	entry := s.append(models.ActionRecordView, "patient-1", s.now)

	rec := s.do(http.MethodGet, "/admin/audit/"+entry.ID+"/verify", "", true)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"valid":true`)

	rec = s.do(http.MethodGet, "/admin/audit/no-such-id/verify", "", true)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestExportCSV() {
	s.append(models.ActionRecordView, "patient-1", s.now.Add(-time.Hour))

	rec := s.do(http.MethodGet, "/admin/audit/export?format=csv", "", true)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("text/csv", rec.Header().Get("Content-Type"))
	s.Contains(rec.Body.String(), "integrity_hash")

	// The export itself lands in the log.
	entries, err := s.svc.FindMany(context.Background(), models.Filter{Action: models.ActionAuditExport})
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *HandlerSuite) TestExportRejectsUnknownFormat() {
	rec := s.do(http.MethodGet, "/admin/audit/export?format=xml", "", true)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestCleanup() {
	s.append(models.ActionRecordView, "patient-1", s.now.Add(-30*24*time.Hour))
	s.append(models.ActionRecordView, "patient-1", s.now.Add(-time.Hour))

	rec := s.do(http.MethodPost, "/admin/audit/cleanup", `{"retention_days": 7}`, true)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"removed":1`)

	// Cleanup records its own trail.
	entries, err := s.svc.FindMany(context.Background(), models.Filter{Action: models.ActionAuditCleanup})
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *HandlerSuite) TestCleanupRequiresBody() {
	rec := s.do(http.MethodPost, "/admin/audit/cleanup", `{}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/admin/audit/cleanup", `{"retention_days": -2}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
