// Package secrets provides account-scoped symmetric encryption for the
// credential material persisted by the two-factor subsystem: shared TOTP
// secrets and backup-code sets.
//
// A single 256-bit application key is configured per deployment. For every
// operation a per-account key is derived from it with HKDF-SHA256, using the
// account identifier as salt. Ciphertext sealed for one account therefore
// cannot be decrypted in the context of another, even if rows are swapped in
// the underlying store.
//
// Encryption is AES-256-GCM with a random nonce prepended to the ciphertext.
// String helpers wrap the byte primitives with base64 for text-oriented
// stores.
package secrets
