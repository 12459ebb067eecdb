package replay

import (
	"context"
	"sync"
	"time"
)

type usedToken struct {
	code     string
	accepted time.Time
}

// MemoryGuard implements Guard with in-process per-account token lists.
type MemoryGuard struct {
	mu     sync.Mutex
	window time.Duration
	tokens map[string][]usedToken
}

// NewMemoryGuard creates a guard that remembers accepted codes for window.
func NewMemoryGuard(window time.Duration) (*MemoryGuard, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &MemoryGuard{
		window: window,
		tokens: make(map[string][]usedToken),
	}, nil
}

func (g *MemoryGuard) IsUsed(ctx context.Context, accountID, code string, now time.Time) (bool, error) {
	if accountID == "" {
		return false, ErrAccountIDRequired
	}
	if code == "" {
		return false, ErrCodeRequired
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-g.window)
	for _, t := range g.tokens[accountID] {
		if t.code == code && t.accepted.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (g *MemoryGuard) MarkUsed(ctx context.Context, accountID, code string, now time.Time) error {
	if accountID == "" {
		return ErrAccountIDRequired
	}
	if code == "" {
		return ErrCodeRequired
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Prune on every write so lists stay bounded by the window
	cutoff := now.Add(-g.window)
	kept := g.tokens[accountID][:0]
	for _, t := range g.tokens[accountID] {
		if t.accepted.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.tokens[accountID] = append(kept, usedToken{code: code, accepted: now})
	return nil
}

func (g *MemoryGuard) Clear(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrAccountIDRequired
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.tokens, accountID)
	return nil
}
