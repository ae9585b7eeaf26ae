// Package counter provides the shared counter substrate for rate limiting.
//
// Counters are fixed windows: the first increment of a key starts the window
// and arms its expiry; subsequent increments within the window accumulate.
// When the window elapses the key disappears and the next increment starts a
// fresh window. Every increment is visible to all instances sharing the
// store, which is what makes quotas consistent across a fleet.
package counter

import (
	"context"
	"time"
)

// Store is the Shared Counter Store port. Implementations must provide an
// atomic increment-and-get with expiry-on-create so concurrent requests from
// the same identity never lose updates.
type Store interface {
	// Increment atomically increments the counter for key, arming a window
	// expiry only on the first increment. Returns the post-increment count
	// and the time remaining until the window resets.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAfter time.Duration, err error)
}
