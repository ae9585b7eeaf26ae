package counter

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a live Redis; set RATE_LIMIT_TEST_REDIS_URL to run.
func TestRedisStoreIncrementIntegration(t *testing.T) {
	url := os.Getenv("RATE_LIMIT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("RATE_LIMIT_TEST_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, time.Second)
	ctx := context.Background()
	key := "ratelimit:test:" + t.Name()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	count, resetAfter, err := store.Increment(ctx, key, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Positive(t, resetAfter)

	count, _, err = store.Increment(ctx, key, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// The expiry armed on the first increment self-resets the window.
	time.Sleep(2100 * time.Millisecond)
	count, _, err = store.Increment(ctx, key, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
