package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditmodels "healthgate/internal/audit/models"
	"healthgate/internal/ratelimit/models"
)

type stubAppender struct {
	records []auditmodels.Record
	err     error
}

func (s *stubAppender) Append(_ context.Context, rec auditmodels.Record) (*auditmodels.Entry, error) {
	s.records = append(s.records, rec)
	return &auditmodels.Entry{}, s.err
}

func TestRecordDenial(t *testing.T) {
	appender := &stubAppender{}
	recorder := NewAuditRecorder(appender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	recorder.RecordDenial(context.Background(), models.BucketAuth, "203.0.113.9", 5)

	require.Len(t, appender.records, 1)
	rec := appender.records[0]
	assert.Equal(t, auditmodels.ActionRateLimitExceeded, rec.Action)
	assert.Equal(t, "203.0.113.9", rec.ActorID)
	assert.Equal(t, "auth", rec.Details["bucket"])
	assert.Equal(t, 5, rec.Details["limit"])
}

func TestRecordDenialSwallowsAppendErrors(t *testing.T) {
	appender := &stubAppender{err: errors.New("store down")}
	recorder := NewAuditRecorder(appender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NotPanics(t, func() {
		recorder.RecordDenial(context.Background(), models.BucketAPI, "patient-1", 100)
	})
}
