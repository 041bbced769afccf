// Package ratelimit implements a request-count limiter over pluggable
// storage. The in-memory store tracks individual request timestamps in a
// sliding window; the Redis store keeps a shared TTL counter so the limit
// holds across instances.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidLimit    = errors.New("limit must be positive")
	ErrInvalidInterval = errors.New("window must be positive")
	ErrKeyRequired     = errors.New("key is required")
	ErrStoreRequired   = errors.New("store is required")
)

// Result reports the outcome of a limiter check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before retrying.
// Zero when the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store is the storage backend contract. RecordIfAllowed must be atomic:
// it counts recent requests for key and records the current one only when
// the count is below limit.
type Store interface {
	RecordIfAllowed(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, count int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// Limiter applies a fixed limit per key within a time window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

// New creates a Limiter allowing limit requests per window per key.
func New(store Store, limit int, window time.Duration) (*Limiter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidInterval
	}
	return &Limiter{store: store, limit: limit, window: window}, nil
}

// Allow checks and records a single request for key.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	allowed, count, resetAt, err := l.store.RecordIfAllowed(ctx, key, l.limit, l.window)
	if err != nil {
		return nil, err
	}

	return &Result{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: max(0, l.limit-count),
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the recorded state for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return l.store.Reset(ctx, key)
}
