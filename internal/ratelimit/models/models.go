package models

import "time"

// Bucket names a rate-limit policy scope. Static buckets carry fixed limits
// from config; BucketAPI is the dynamic per-identity bucket whose limit
// derives from the requester's tier at call time.
type Bucket string

const (
	// BucketGeneral covers unauthenticated browsing endpoints.
	BucketGeneral Bucket = "general"
	// BucketAuth covers login/registration/refresh endpoints.
	BucketAuth Bucket = "auth"
	// BucketSensitive covers medical-record and other sensitive-data endpoints.
	BucketSensitive Bucket = "sensitive"
	// BucketAPI is the dynamic tier-based bucket for authenticated API usage.
	BucketAPI Bucket = "api"
)

func (b Bucket) IsValid() bool {
	switch b {
	case BucketGeneral, BucketAuth, BucketSensitive, BucketAPI:
		return true
	}
	return false
}

// IdentityAnonymous is the counter identity used when neither an
// authenticated subject nor a client IP is available.
const IdentityAnonymous = "anonymous"

// Tier is a named quota class attached to an authenticated identity.
// Tier lookups happen per request; tier changes take effect on the next call.
type Tier string

const (
	TierDefault Tier = "default"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

func (t Tier) IsValid() bool {
	switch t {
	case TierDefault, TierPro, TierPremium:
		return true
	}
	return false
}

// Result is the outcome of a single quota check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// RetryAfter is seconds until the window resets; only set when not allowed.
	RetryAfter int `json:"retry_after,omitempty"`
	// Degraded marks a decision taken while the counter store was
	// unreachable and the outage policy applied.
	Degraded bool `json:"degraded,omitempty"`
}
