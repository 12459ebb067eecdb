package replay

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidWindow     = errors.New("window must be positive")
	ErrAccountIDRequired = errors.New("account id is required")
	ErrCodeRequired      = errors.New("code is required")
	ErrStoreUnavailable  = errors.New("replay store unavailable")
)

// Guard tracks recently accepted codes per account so a code cannot be
// accepted twice while it remains time-valid. Verification tolerates a window
// of adjacent time steps, so without this a single valid code could be
// replayed several times before it naturally expires.
type Guard interface {
	// IsUsed reports whether code was accepted for the account within the
	// validity window ending at now.
	IsUsed(ctx context.Context, accountID, code string, now time.Time) (bool, error)

	// MarkUsed records the accepted code with timestamp now, pruning entries
	// that have aged out of the window.
	MarkUsed(ctx context.Context, accountID, code string, now time.Time) error

	// Clear drops all used-token records for the account. Idempotent.
	Clear(ctx context.Context, accountID string) error
}
