package counter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "healthgate/pkg/domain-errors"
)

// RedisStore implements Store against a shared Redis instance. This is the
// production substrate: INCR is atomic and the expiry is armed only when the
// key is fresh, so the fixed window self-resets.
type RedisStore struct {
	client  redis.Cmdable
	timeout time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a redis-backed counter store. Every call carries
// timeout as its deadline so a slow Redis never blocks the request path.
func NewRedisStore(client redis.Cmdable, timeout time.Duration) *RedisStore {
	return &RedisStore{client: client, timeout: timeout}
}

// Increment runs INCR + EXPIRE NX + PTTL in one pipeline round trip.
// EXPIRE NX only sets the TTL when the key has none, i.e. on the increment
// that created it.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	// The increment must complete even if the inbound request was aborted;
	// rolled-back counters would undercount abusive bursts of canceled
	// requests. Detach from the caller's cancellation but keep a deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "counter increment failed")
	}

	resetAfter := ttl.Val()
	if resetAfter < 0 {
		// PTTL reports -1 for keys without expiry; treat a missing TTL as a
		// full window so callers still get a sane reset time.
		resetAfter = window
	}
	return incr.Val(), resetAfter, nil
}
