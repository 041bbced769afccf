package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps per-key request timestamps in process memory. State is
// lost on restart and not shared between instances; use RedisStore when the
// service runs with more than one replica.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval overrides how often stale keys are swept.
// Zero disables the sweeper.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) { s.cleanupInterval = interval }
}

// NewMemoryStore creates an in-memory store with a background sweeper for
// keys whose every timestamp has aged out.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		windows:         make(map[string][]time.Time),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cleanupInterval > 0 {
		go s.cleanupLoop()
	}
	return s
}

// RecordIfAllowed prunes timestamps outside the window, then appends the
// current one when fewer than limit remain.
func (s *MemoryStore) RecordIfAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	kept := s.windows[key][:0:len(s.windows[key])]
	for _, ts := range s.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		s.windows[key] = kept
		// The window opens again once the oldest kept request ages out.
		return false, len(kept), kept[0].Add(window), nil
	}

	kept = append(kept, now)
	s.windows[key] = kept
	return true, len(kept), now.Add(window), nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeStale()
		case <-s.stopCleanup:
			return
		}
	}
}

// removeStale drops keys whose newest timestamp is older than an hour.
// Window pruning happens on access; this only bounds memory for keys that
// never come back.
func (s *MemoryStore) removeStale() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour)
	for key, window := range s.windows {
		if len(window) == 0 || window[len(window)-1].Before(cutoff) {
			delete(s.windows, key)
		}
	}
}

// Close stops the sweeper goroutine. Safe to call multiple times.
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() { close(s.stopCleanup) })
}
