package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a fixed-window counter held in process memory. Suitable for
// single-instance deployments and tests; multi-instance deployments use the
// Redis store so all gates share one counter.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int64
}

// MemoryOption configures the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock injects a clock for deterministic window tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an in-memory counter store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment adds one to the key's counter, resetting it when the window has
// elapsed. Expired windows for other keys are reaped opportunistically.
func (s *MemoryStore) Increment(_ context.Context, key string, dur time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= dur {
		w = &window{start: now}
		s.windows[key] = w
	}
	w.count++

	for k, other := range s.windows {
		if k != key && now.Sub(other.start) >= dur {
			delete(s.windows, k)
		}
	}
	return w.count, nil
}
