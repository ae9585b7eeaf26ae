package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthgate/internal/ratelimit/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	auth, ok := cfg.GetBucketLimit(models.BucketAuth)
	require.True(t, ok)
	assert.Equal(t, 5, auth.Requests)
	assert.Equal(t, 15*time.Minute, auth.Window)

	assert.Equal(t, 100, cfg.GetTierLimit(models.TierDefault))
	assert.Equal(t, 500, cfg.GetTierLimit(models.TierPremium))
	assert.Equal(t, PolicyFailOpen, cfg.OutagePolicy)
}

func TestGetTierLimitUnknownFallsBackToDefault(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.TierLimits[models.TierDefault], cfg.GetTierLimit(models.Tier("platinum")))
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_BUCKET_AUTH", "10:1m")
	t.Setenv("RATE_LIMIT_TIER_PREMIUM", "1000")
	t.Setenv("RATE_LIMIT_OUTAGE_POLICY", "fail_closed")
	t.Setenv("RATE_LIMIT_STORE_TIMEOUT", "250ms")

	cfg := FromEnv()

	auth, ok := cfg.GetBucketLimit(models.BucketAuth)
	require.True(t, ok)
	assert.Equal(t, 10, auth.Requests)
	assert.Equal(t, time.Minute, auth.Window)
	assert.Equal(t, 1000, cfg.GetTierLimit(models.TierPremium))
	assert.Equal(t, PolicyFailClosed, cfg.OutagePolicy)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
}

func TestFromEnvIgnoresMalformedOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_BUCKET_AUTH", "not-a-limit")
	t.Setenv("RATE_LIMIT_TIER_PRO", "-3")

	cfg := FromEnv()

	auth, _ := cfg.GetBucketLimit(models.BucketAuth)
	assert.Equal(t, 5, auth.Requests)
	assert.Equal(t, 250, cfg.GetTierLimit(models.TierPro))
}
