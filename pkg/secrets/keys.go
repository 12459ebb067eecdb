package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required application key size: 256 bits for AES-256.
	KeySize = 32

	// keyInfo provides HKDF domain separation so keys derived here can never
	// collide with keys derived by other subsystems from the same app key.
	keyInfo = "twofactor-secrets-v1"
)

// ValidateKey checks that the application key has the correct length.
func ValidateKey(appKey []byte) error {
	if len(appKey) != KeySize {
		return ErrInvalidKey
	}
	return nil
}

// deriveAccountKey derives a per-account encryption key from the application
// key using HKDF-SHA256 with the account identifier as salt. The caller must
// clear the returned key with clearBytes when done.
func deriveAccountKey(appKey []byte, accountID string) ([]byte, error) {
	if err := ValidateKey(appKey); err != nil {
		return nil, err
	}
	if accountID == "" {
		return nil, ErrMissingAccountID
	}

	hkdfReader := hkdf.New(sha256.New, appKey, []byte(accountID), []byte(keyInfo))

	derivedKey := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdfReader, derivedKey); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}

	return derivedKey, nil
}

// clearBytes zeros out a byte slice to limit the time derived key material
// stays in memory.
func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateKey creates a new random 32-byte application key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrFailedToGenerateKey, err)
	}
	return key, nil
}

// GenerateEncodedKey creates a new application key as a base64 string,
// suitable for storing in the TWOFACTOR_ENCRYPTION_KEY environment variable.
func GenerateEncodedKey() (string, error) {
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// DecodeKey decodes a base64-encoded application key and validates its length.
func DecodeKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrKeyNotSet
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return key, nil
}
