// Package throttle provides a process-local brake for degraded operation.
//
// When the shared counter store is unreachable and the limiter fails open,
// per-identity quotas cannot be enforced. The throttle bounds the worst case:
// a single token bucket over all traffic, so an outage does not remove every
// brake at once.
package throttle

import "golang.org/x/time/rate"

// Throttle is a process-wide token bucket. Safe for concurrent use.
type Throttle struct {
	limiter *rate.Limiter
}

// New creates a throttle admitting perSecond requests with the given burst.
func New(perSecond float64, burst int) *Throttle {
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow reports whether one more request may pass right now.
func (t *Throttle) Allow() bool {
	return t.limiter.Allow()
}
