// Package service enforces per-bucket request quotas over fixed time windows.
//
// This is the primary rate limiting service used by middleware to govern
// ingress. Counters live in the Shared Counter Store so every instance sees
// every increment; the service holds no count state of its own.
//
// Usage:
//
//	svc, _ := service.New(counterStore)
//	result, _ := svc.CheckAndConsume(ctx, models.BucketAuth, clientIP)
//	if !result.Allowed {
//	    // Return 429 Too Many Requests
//	}
//
// The dynamic bucket derives its limit from the requester's tier at call
// time; tiers are never cached beyond one request.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"healthgate/internal/ratelimit/config"
	"healthgate/internal/ratelimit/metrics"
	"healthgate/internal/ratelimit/models"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/requesttime"
)

// CounterStore is the shared counter substrate (see store/counter).
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAfter time.Duration, err error)
}

// TierResolver looks up the quota tier attached to an authenticated subject.
// Called once per dynamic-bucket check so tier changes apply immediately.
type TierResolver interface {
	ResolveTier(ctx context.Context, subjectID string) (models.Tier, error)
}

// LocalThrottle bounds throughput while the counter store is unreachable.
type LocalThrottle interface {
	Allow() bool
}

// DenialRecorder receives security-relevant denial events, typically backed
// by the audit log.
type DenialRecorder interface {
	RecordDenial(ctx context.Context, bucket models.Bucket, identity string, limit int)
}

// Service enforces request quotas. Thread-safe for concurrent use by HTTP
// middleware; all shared state lives in the counter store.
type Service struct {
	store    CounterStore
	tiers    TierResolver
	throttle LocalThrottle
	denials  DenialRecorder
	logger   *slog.Logger
	config   *config.Config
	metrics  *metrics.Metrics
}

// Option configures a Service instance.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithConfig overrides the default rate limit configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTierResolver sets the tier lookup used by the dynamic bucket.
func WithTierResolver(r TierResolver) Option {
	return func(s *Service) {
		s.tiers = r
	}
}

// WithLocalThrottle sets the degraded-mode throttle.
func WithLocalThrottle(t LocalThrottle) Option {
	return func(s *Service) {
		s.throttle = t
	}
}

// WithDenialRecorder sets the audit sink for quota denials.
func WithDenialRecorder(r DenialRecorder) Option {
	return func(s *Service) {
		s.denials = r
	}
}

// New creates a rate limiting service backed by the given counter store.
func New(store CounterStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("counter store is required")
	}

	svc := &Service{
		store:  store,
		config: config.DefaultConfig(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// CheckAndConsume enforces the static quota for bucket against identity
// (IP, subject id, or models.IdentityAnonymous). It consumes one slot from
// the current window and reports the decision; the caller rejects the
// request when Allowed is false.
func (s *Service) CheckAndConsume(ctx context.Context, bucket models.Bucket, identity string) (*models.Result, error) {
	limit, ok := s.config.GetBucketLimit(bucket)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "no limit configured for bucket "+string(bucket))
	}
	return s.checkAndConsume(ctx, bucket, identity, limit.Requests, limit.Window)
}

// CheckDynamic enforces the tier-based dynamic bucket for an authenticated
// subject. Tier resolution failures fall back to the default tier rather
// than rejecting the request.
func (s *Service) CheckDynamic(ctx context.Context, subjectID string) (*models.Result, error) {
	tier := models.TierDefault
	if s.tiers != nil && subjectID != "" && subjectID != models.IdentityAnonymous {
		resolved, err := s.tiers.ResolveTier(ctx, subjectID)
		switch {
		case err != nil:
			s.log(ctx, slog.LevelWarn, "tier resolution failed, using default tier",
				"subject_id", subjectID, "error", err)
		case resolved.IsValid():
			tier = resolved
		}
	}

	limit := s.config.GetTierLimit(tier)
	return s.checkAndConsume(ctx, models.BucketAPI, subjectID, limit, s.config.TierWindow)
}

func (s *Service) checkAndConsume(ctx context.Context, bucket models.Bucket, identity string, limit int, window time.Duration) (*models.Result, error) {
	now := requesttime.Now(ctx)
	key := models.NewCounterKey(bucket, identity)

	count, resetAfter, err := s.store.Increment(ctx, key.String(), window)
	if err != nil {
		return s.resolveOutage(ctx, bucket, identity, limit, window, err), nil
	}

	allowed := count <= int64(limit)
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	result := &models.Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(resetAfter),
	}

	if !allowed {
		result.RetryAfter = retryAfterSeconds(resetAfter)
		s.log(ctx, slog.LevelWarn, "rate limit exceeded",
			"bucket", bucket,
			"identity", identity,
			"limit", limit,
			"window_seconds", int(window.Seconds()),
		)
		if s.denials != nil {
			s.denials.RecordDenial(ctx, bucket, identity, limit)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordDecision(string(bucket), allowed)
	}
	return result, nil
}

// resolveOutage applies the configured policy when the counter store is
// unreachable: fail open (allow, bounded by the local throttle) or fail
// closed (reject). Either way the degradation is logged with full context.
func (s *Service) resolveOutage(ctx context.Context, bucket models.Bucket, identity string, limit int, window time.Duration, err error) *models.Result {
	now := requesttime.Now(ctx)
	if s.metrics != nil {
		s.metrics.RecordStoreError()
		s.metrics.RecordDegraded()
	}
	s.log(ctx, slog.LevelError, "counter store unreachable, applying outage policy",
		"bucket", bucket,
		"identity", identity,
		"policy", string(s.config.OutagePolicy),
		"error", err,
	)

	if s.config.OutagePolicy == config.PolicyFailClosed {
		return &models.Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    now.Add(window),
			RetryAfter: retryAfterSeconds(window),
			Degraded:   true,
		}
	}

	if s.throttle != nil && !s.throttle.Allow() {
		if s.metrics != nil {
			s.metrics.RecordThrottleDrop()
		}
		return &models.Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    now.Add(time.Second),
			RetryAfter: 1,
			Degraded:   true,
		}
	}

	remaining := limit - 1
	if remaining < 0 {
		remaining = 0
	}
	return &models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(window),
		Degraded:  true,
	}
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, args...)
	}
}

func retryAfterSeconds(resetAfter time.Duration) int {
	seconds := int(math.Ceil(resetAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
