// Package store defines the encrypted key-value persistence contract used by
// the two-factor subsystem and provides in-memory, Redis, and PostgreSQL
// implementations.
//
// Values stored here are opaque ciphertext produced by pkg/secrets; nothing
// in this package touches plaintext credential material. The Store interface
// keeps absence (ErrNotFound) strictly separate from infrastructure failure
// (ErrUnavailable) so callers can distinguish "not enrolled" from "storage
// down".
package store
