package ratelimit

import (
	"context"
	"time"
)

const (
	// DefaultLimit is the attempt cap per window.
	DefaultLimit = 5

	// DefaultWindow is the rolling window attempts are counted over.
	DefaultWindow = 15 * time.Minute
)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed   bool      // Whether the attempt may proceed
	Limit     int       // Attempt cap within the window
	Remaining int       // Attempts left before denial
	ResetAt   time.Time // When the oldest counted attempt ages out
}

// RetryAfter returns how long to wait before the next attempt is allowed.
// Returns 0 if the attempt was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store is the timestamp-list backend for the sliding window.
type Store interface {
	// CountInWindow returns the number of recorded attempts newer than
	// now minus window.
	CountInWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)

	// RecordAttempt appends an attempt timestamp, pruning entries older than
	// the window in the same update.
	RecordAttempt(ctx context.Context, key string, now time.Time, window time.Duration) error

	// Reset drops all recorded attempts for the key.
	Reset(ctx context.Context, key string) error
}

// SlidingWindow caps attempts per key within a rolling window by tracking
// individual attempt timestamps. Callers record failures explicitly and reset
// on success, which matches the verification flow: a correct code proves the
// holder is not guessing.
type SlidingWindow struct {
	store  Store
	limit  int
	window time.Duration
}

// NewSlidingWindow creates a sliding window limiter.
func NewSlidingWindow(store Store, limit int, window time.Duration) (*SlidingWindow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &SlidingWindow{store: store, limit: limit, window: window}, nil
}

// Check reports whether another attempt is allowed for the key at now,
// without recording anything.
func (sw *SlidingWindow) Check(ctx context.Context, key string, now time.Time) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	count, err := sw.store.CountInWindow(ctx, key, now, sw.window)
	if err != nil {
		return nil, err
	}

	return &Result{
		Allowed:   count < sw.limit,
		Limit:     sw.limit,
		Remaining: max(0, sw.limit-count),
		ResetAt:   now.Add(sw.window),
	}, nil
}

// RecordFailure counts a failed attempt against the key and returns the state
// after the increment.
func (sw *SlidingWindow) RecordFailure(ctx context.Context, key string, now time.Time) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	if err := sw.store.RecordAttempt(ctx, key, now, sw.window); err != nil {
		return nil, err
	}

	count, err := sw.store.CountInWindow(ctx, key, now, sw.window)
	if err != nil {
		return nil, err
	}

	return &Result{
		Allowed:   count < sw.limit,
		Limit:     sw.limit,
		Remaining: max(0, sw.limit-count),
		ResetAt:   now.Add(sw.window),
	}, nil
}

// Reset clears the attempt list for the key. Called after a successful
// verification.
func (sw *SlidingWindow) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return sw.store.Reset(ctx, key)
}
