package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"healthgate/internal/ratelimit/models"
)

// OutagePolicy decides what happens when the shared counter store is
// unreachable. Fail-open prioritizes availability over strict enforcement.
type OutagePolicy string

const (
	PolicyFailOpen   OutagePolicy = "fail_open"
	PolicyFailClosed OutagePolicy = "fail_closed"
)

// Limit defines rate limit parameters for a bucket.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	// Static per-bucket limits.
	Buckets map[models.Bucket]Limit

	// Tier → max requests for the dynamic bucket.
	TierLimits map[models.Tier]int
	// Window shared by all tiers of the dynamic bucket.
	TierWindow time.Duration

	// Policy applied when the counter store is unreachable.
	OutagePolicy OutagePolicy

	// Per-call deadline for counter store operations.
	StoreTimeout time.Duration

	// Local throttle engaged while degraded (fail-open only).
	DegradedPerSecond float64
	DegradedBurst     int
}

// DefaultConfig returns the default governance limits.
func DefaultConfig() *Config {
	return &Config{
		Buckets: map[models.Bucket]Limit{
			models.BucketGeneral:   {Requests: 100, Window: 15 * time.Minute},
			models.BucketAuth:      {Requests: 5, Window: 15 * time.Minute},
			models.BucketSensitive: {Requests: 30, Window: 15 * time.Minute},
		},
		TierLimits: map[models.Tier]int{
			models.TierDefault: 100,
			models.TierPro:     250,
			models.TierPremium: 500,
		},
		TierWindow:        15 * time.Minute,
		OutagePolicy:      PolicyFailOpen,
		StoreTimeout:      500 * time.Millisecond,
		DegradedPerSecond: 200,
		DegradedBurst:     50,
	}
}

// FromEnv returns the default config with environment overrides applied.
// Bucket overrides use RATE_LIMIT_BUCKET_<NAME>="<requests>:<window>",
// tier overrides RATE_LIMIT_TIER_<NAME>="<requests>".
func FromEnv() *Config {
	cfg := DefaultConfig()

	for _, b := range []models.Bucket{models.BucketGeneral, models.BucketAuth, models.BucketSensitive} {
		if raw := os.Getenv("RATE_LIMIT_BUCKET_" + strings.ToUpper(string(b))); raw != "" {
			if limit, ok := parseLimit(raw); ok {
				cfg.Buckets[b] = limit
			}
		}
	}

	for _, t := range []models.Tier{models.TierDefault, models.TierPro, models.TierPremium} {
		if raw := os.Getenv("RATE_LIMIT_TIER_" + strings.ToUpper(string(t))); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				cfg.TierLimits[t] = n
			}
		}
	}

	if raw := os.Getenv("RATE_LIMIT_TIER_WINDOW"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.TierWindow = d
		}
	}

	switch OutagePolicy(os.Getenv("RATE_LIMIT_OUTAGE_POLICY")) {
	case PolicyFailOpen:
		cfg.OutagePolicy = PolicyFailOpen
	case PolicyFailClosed:
		cfg.OutagePolicy = PolicyFailClosed
	}

	if raw := os.Getenv("RATE_LIMIT_STORE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.StoreTimeout = d
		}
	}

	return cfg
}

// GetBucketLimit returns the static limit for a bucket.
func (c *Config) GetBucketLimit(bucket models.Bucket) (Limit, bool) {
	limit, ok := c.Buckets[bucket]
	return limit, ok
}

// GetTierLimit returns the dynamic-bucket limit for a tier, falling back to
// the default tier for unknown values.
func (c *Config) GetTierLimit(tier models.Tier) int {
	if n, ok := c.TierLimits[tier]; ok {
		return n
	}
	return c.TierLimits[models.TierDefault]
}

// parseLimit parses "<requests>:<window>", e.g. "5:15m".
func parseLimit(raw string) (Limit, bool) {
	reqStr, winStr, ok := strings.Cut(raw, ":")
	if !ok {
		return Limit{}, false
	}
	requests, err := strconv.Atoi(reqStr)
	if err != nil || requests <= 0 {
		return Limit{}, false
	}
	window, err := time.ParseDuration(winStr)
	if err != nil || window <= 0 {
		return Limit{}, false
	}
	return Limit{Requests: requests, Window: window}, true
}
