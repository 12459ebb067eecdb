package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with per-key timestamp slices.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewMemoryStore creates an empty in-memory attempt store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string][]time.Time)}
}

func (s *MemoryStore) CountInWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	count := 0
	for _, t := range s.attempts[key] {
		if t.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) RecordAttempt(ctx context.Context, key string, now time.Time, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Prune on write so slices stay bounded by the window
	cutoff := now.Add(-window)
	kept := s.attempts[key][:0]
	for _, t := range s.attempts[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.attempts[key] = append(kept, now)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.attempts, key)
	return nil
}
