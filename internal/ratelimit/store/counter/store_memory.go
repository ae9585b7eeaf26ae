package counter

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store with process-local fixed windows. Suitable
// for tests and single-instance deployments; production uses RedisStore so
// counters are shared across instances.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow

	now func() time.Time
}

var _ Store = (*InMemoryStore)(nil)

type fixedWindow struct {
	count     int64
	startedAt time.Time
	window    time.Duration
}

// NewInMemoryStore creates an empty in-memory counter store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		windows: make(map[string]*fixedWindow),
		now:     time.Now,
	}
}

// Increment bumps the fixed-window counter for key, resetting the window
// once its duration has fully elapsed.
func (s *InMemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.Sub(w.startedAt) >= w.window {
		w = &fixedWindow{startedAt: now, window: window}
		s.windows[key] = w
	}
	w.count++

	resetAfter := w.window - now.Sub(w.startedAt)
	return w.count, resetAfter, nil
}

// Reset clears the counter for a key.
func (s *InMemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
}
