package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports that no value exists for the key. Callers must not
	// conflate it with ErrUnavailable: absence is an enrollment-state fact,
	// unavailability is an infrastructure failure.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable reports that the backing store could not be reached.
	ErrUnavailable = errors.New("store unavailable")

	// ErrKeyRequired reports an empty key.
	ErrKeyRequired = errors.New("key is required")
)

// Store is the encrypted key-value persistence contract used for secrets and
// backup-code sets. Values are opaque ciphertext strings; encryption happens
// above this layer. Keys are namespaced by the caller per account.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
