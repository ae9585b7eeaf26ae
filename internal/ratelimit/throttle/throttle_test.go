package throttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThrottleBoundsBurst(t *testing.T) {
	// 1 req/s with a burst of 3: exactly 3 immediate requests pass.
	th := New(1, 3)

	allowed := 0
	for i := 0; i < 10; i++ {
		if th.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
}
