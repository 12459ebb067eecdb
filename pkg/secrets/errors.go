package secrets

import "errors"

var (
	// Key errors
	ErrInvalidKey          = errors.New("invalid application key: must be 32 bytes")
	ErrKeyNotSet           = errors.New("application key not set")
	ErrMissingAccountID    = errors.New("missing account id")
	ErrFailedToGenerateKey = errors.New("failed to generate application key")
	ErrKeyDerivationFailed = errors.New("key derivation failed")

	// Encryption/decryption errors
	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
)
