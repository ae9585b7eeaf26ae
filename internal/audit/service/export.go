package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"

	"healthgate/internal/audit/models"
	"healthgate/internal/audit/tracer"
	dErrors "healthgate/pkg/domain-errors"
)

// Export serializes the entries in [from, to) as a JSON or CSV document and
// returns the payload with its content type. Pure read projection; the chain
// is untouched.
func (s *Service) Export(ctx context.Context, from, to time.Time, format string) ([]byte, string, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanExport,
		tracer.String(tracer.AttrFormat, format))

	payload, contentType, err := s.export(ctx, from, to, format)
	span.End(err)
	return payload, contentType, err
}

func (s *Service) export(ctx context.Context, from, to time.Time, format string) ([]byte, string, error) {
	switch format {
	case models.FormatJSON, models.FormatCSV:
	default:
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "unsupported export format "+strconv.Quote(format))
	}

	listCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	entries, err := s.store.ListRange(listCtx, from, to)
	if err != nil {
		return nil, "", err
	}

	if format == models.FormatJSON {
		payload, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "encode export")
		}
		return payload, "application/json", nil
	}

	payload, err := marshalCSV(entries)
	if err != nil {
		return nil, "", err
	}
	return payload, "text/csv", nil
}

func marshalCSV(entries []*models.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"seq", "id", "timestamp", "action", "actor_id", "source_ip",
		"user_agent", "request_path", "method", "details", "integrity_hash"}
	if err := w.Write(header); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode export")
	}

	for _, entry := range entries {
		var details string
		if entry.Details != nil {
			raw, err := json.Marshal(entry.Details)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode export")
			}
			details = string(raw)
		}

		record := []string{
			strconv.FormatInt(entry.Seq, 10),
			entry.ID,
			entry.Timestamp.UTC().Format(time.RFC3339Nano),
			string(entry.Action),
			entry.ActorID,
			entry.SourceIP,
			entry.UserAgent,
			entry.RequestPath,
			entry.Method,
			details,
			entry.IntegrityHash,
		}
		if err := w.Write(record); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode export")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode export")
	}
	return buf.Bytes(), nil
}
