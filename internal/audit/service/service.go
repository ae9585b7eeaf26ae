// Package service owns the audit log's business rules: chain construction on
// append, integrity verification, querying, aggregation, retention pruning,
// and export.
//
// Appends are optimistic. The service reads the chain head, computes the
// next entry's hash against it, and asks the store to commit with a
// compare-and-swap; a lost race surfaces as chain_conflict and the append is
// recomputed against the fresh head, up to a bounded number of attempts.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"healthgate/internal/audit/metrics"
	"healthgate/internal/audit/models"
	"healthgate/internal/audit/store"
	"healthgate/internal/audit/tracer"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/requesttime"
)

const (
	// appendMaxAttempts bounds the optimistic retry loop. Conflicts are
	// expected under concurrent writers and resolve quickly, so the budget
	// is generous relative to the observed contention.
	appendMaxAttempts = 5
	appendBaseBackoff = 5 * time.Millisecond

	topActionsLimit = 10
)

// Service coordinates audit operations over a Store. Thread-safe; the store
// provides all serialization.
type Service struct {
	store        store.Store
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       tracer.Tracer
	storeTimeout time.Duration
}

// Option configures a Service instance.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the span factory.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithStoreTimeout bounds each store operation with its own deadline so a
// hung backend surfaces as a retryable failure instead of stalling the
// request. Zero disables the bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.storeTimeout = d
	}
}

// New creates an audit service backed by the given store.
func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("audit store is required")
	}

	svc := &Service{
		store:  st,
		tracer: tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Append commits one audit entry to the chain and returns it with its
// sequence and integrity hash assigned. Safe under concurrent callers.
func (s *Service) Append(ctx context.Context, rec models.Record) (*models.Entry, error) {
	if rec.Action == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "audit action is required")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanAppend,
		tracer.String(tracer.AttrAction, string(rec.Action)))

	var (
		entry    *models.Entry
		err      error
		attempts int
	)
	for attempts = 1; attempts <= appendMaxAttempts; attempts++ {
		entry, err = s.tryAppend(ctx, rec)
		if err == nil || !dErrors.HasCode(err, dErrors.CodeChainConflict) {
			break
		}

		if s.metrics != nil {
			s.metrics.RecordChainConflict()
		}
		if attempts == appendMaxAttempts {
			break
		}
		if s.metrics != nil {
			s.metrics.RecordAppendRetry()
		}
		sleepBackoff(ctx, attempts)
	}

	span.SetAttributes(tracer.Int64(tracer.AttrAttempts, int64(attempts)))
	if entry != nil {
		span.SetAttributes(tracer.Int64(tracer.AttrSeq, entry.Seq))
	}
	span.End(err)

	if s.metrics != nil {
		s.metrics.RecordAppend(err == nil)
	}
	if err != nil {
		s.log(ctx, slog.LevelError, "audit append failed",
			"action", rec.Action,
			"actor_id", rec.ActorID,
			"attempts", attempts,
			"error", err,
		)
		return nil, err
	}
	return entry, nil
}

func (s *Service) tryAppend(ctx context.Context, rec models.Record) (*models.Entry, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	head, err := s.store.Head(ctx)
	if err != nil {
		return nil, err
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = requesttime.Now(ctx)
	}
	// A timestamptz column keeps microseconds, so hash only the precision a
	// store round trip preserves.
	ts = ts.UTC().Truncate(time.Microsecond)

	entry := &models.Entry{
		ID:          uuid.New().String(),
		Seq:         head.Seq + 1,
		Timestamp:   ts,
		Action:      rec.Action,
		ActorID:     rec.ActorID,
		SourceIP:    rec.SourceIP,
		UserAgent:   rec.UserAgent,
		RequestPath: rec.RequestPath,
		Method:      rec.Method,
		Details:     enrichDetails(rec.Details, rec.UserAgent),
	}
	entry.IntegrityHash = models.ComputeHash(head.Hash, entry)

	if err := s.store.Append(ctx, entry, head.Hash); err != nil {
		return nil, err
	}
	return entry, nil
}

// VerifyIntegrity recomputes the entry's hash from its stored fields and its
// predecessor (or the chain-root marker for the earliest surviving entry)
// and compares it to the stored value. False means tampering or corruption.
func (s *Service) VerifyIntegrity(ctx context.Context, entryID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify)

	valid, err := s.verify(ctx, entryID)
	span.SetAttributes(tracer.Bool(tracer.AttrValid, valid))
	span.End(err)

	if err != nil {
		return false, err
	}
	if s.metrics != nil {
		s.metrics.RecordIntegrityCheck(valid)
	}
	if !valid {
		s.log(ctx, slog.LevelError, "audit integrity mismatch", "entry_id", entryID)
	}
	return valid, nil
}

func (s *Service) verify(ctx context.Context, entryID string) (bool, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	entry, err := s.store.GetByID(ctx, entryID)
	if err != nil {
		return false, err
	}

	root, err := s.store.Root(ctx)
	if err != nil {
		return false, err
	}

	prevHash := root.PrevHash
	if entry.Seq != root.Seq {
		prev, err := s.store.GetBySeq(ctx, entry.Seq-1)
		if err != nil {
			// A gap below an unpruned entry means the chain itself is
			// damaged, not just one record.
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return false, dErrors.New(dErrors.CodeIntegrityMismatch, "predecessor entry missing from chain")
			}
			return false, err
		}
		prevHash = prev.IntegrityHash
	}

	return models.ComputeHash(prevHash, entry) == entry.IntegrityHash, nil
}

// FindMany returns entries matching filter, newest first.
func (s *Service) FindMany(ctx context.Context, filter models.Filter) ([]*models.Entry, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.FindMany(ctx, filter)
}

// GetStatistics aggregates the log over [from, to); zero bounds are open.
func (s *Service) GetStatistics(ctx context.Context, from, to time.Time) (*models.Statistics, error) {
	listCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	entries, err := s.store.ListRange(listCtx, from, to)
	if err != nil {
		return nil, err
	}

	stats := &models.Statistics{TotalLogs: int64(len(entries))}
	actors := make(map[string]struct{})
	counts := make(map[models.Action]int64)

	for _, entry := range entries {
		counts[entry.Action]++
		if entry.Action.IsSecurityEvent() {
			stats.SecurityEventCount++
		}
		if entry.Action.IsDataAccess() {
			stats.DataAccessCount++
		}
		if entry.ActorID != "" {
			actors[entry.ActorID] = struct{}{}
		}
	}
	stats.UniqueActors = int64(len(actors))

	top := make([]models.ActionCount, 0, len(counts))
	for action, count := range counts {
		top = append(top, models.ActionCount{Action: action, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Action < top[j].Action
	})
	if len(top) > topActionsLimit {
		top = top[:topActionsLimit]
	}
	stats.TopActions = top

	return stats, nil
}

// Cleanup prunes entries older than retentionDays and reports how many were
// removed. retentionDays 0 clears the whole log while keeping the chain
// appendable.
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "retention days must not be negative")
	}

	cutoff := requesttime.Now(ctx).Add(-time.Duration(retentionDays) * 24 * time.Hour)

	ctx, span := s.tracer.Start(ctx, tracer.SpanCleanup)
	storeCtx, cancel := s.storeCtx(ctx)
	removed, err := s.store.Cleanup(storeCtx, cutoff)
	cancel()
	span.SetAttributes(tracer.Int64(tracer.AttrRemoved, removed))
	span.End(err)

	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.RecordCleanup(removed)
	}
	s.log(ctx, slog.LevelInfo, "audit cleanup complete",
		"retention_days", retentionDays,
		"removed", removed,
	)
	return removed, nil
}

// storeCtx derives the per-call deadline for store operations. The returned
// cancel is always non-nil.
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, args...)
	}
}

// sleepBackoff waits a jittered, linearly growing interval between append
// attempts, returning early if the context is cancelled.
func sleepBackoff(ctx context.Context, attempt int) {
	d := appendBaseBackoff * time.Duration(attempt)
	d += time.Duration(rand.Int63n(int64(appendBaseBackoff)))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
