package backup

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"strings"

	"github.com/veilauth/twofactor/pkg/secrets"
	"github.com/veilauth/twofactor/pkg/store"
)

const (
	// CodeCount is the number of codes issued per enrollment or regeneration.
	CodeCount = 10

	// CodeLength is the length of each code in characters.
	CodeLength = 8

	// codeAlphabet is the character set codes are drawn from.
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	keyPrefix = "backup:"
)

// Manager generates, stores, and atomically consumes single-use backup codes.
// The code set is persisted encrypted as one value per account; consumption
// removes the matched code in the same read-modify-write. Callers must
// serialize concurrent operations for the same account.
type Manager struct {
	store  store.Store
	appKey []byte
}

// NewManager creates a backup code manager on the given store. appKey is the
// deployment's 256-bit encryption key.
func NewManager(s store.Store, appKey []byte) (*Manager, error) {
	if s == nil {
		return nil, ErrStoreRequired
	}
	if err := secrets.ValidateKey(appKey); err != nil {
		return nil, err
	}
	return &Manager{store: s, appKey: appKey}, nil
}

// Generate creates a fresh set of CodeCount codes for the account, replacing
// any previous set, and returns the plaintext codes for one-time display.
func (m *Manager) Generate(ctx context.Context, accountID string) ([]string, error) {
	if accountID == "" {
		return nil, ErrAccountIDRequired
	}

	codes := make([]string, CodeCount)
	for i := range codes {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}

	if err := m.persist(ctx, accountID, codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// VerifyAndConsume checks candidate against the stored set. On a match the
// code is removed from the persisted set in the same read-modify-write and
// true is returned; on no match the set is left untouched. Comparison is
// constant-time per code to avoid leaking match positions.
func (m *Manager) VerifyAndConsume(ctx context.Context, accountID, candidate string) (bool, error) {
	if accountID == "" {
		return false, ErrAccountIDRequired
	}

	candidate = strings.ToUpper(strings.TrimSpace(candidate))
	if len(candidate) != CodeLength {
		return false, nil
	}

	codes, err := m.load(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	// Scan the whole set even after a hit so the comparison count does not
	// depend on where the match sits.
	matched := -1
	for i, code := range codes {
		if subtle.ConstantTimeCompare([]byte(code), []byte(candidate)) == 1 {
			matched = i
		}
	}
	if matched < 0 {
		return false, nil
	}

	remaining := append(codes[:matched], codes[matched+1:]...)
	if err := m.persist(ctx, accountID, remaining); err != nil {
		return false, err
	}
	return true, nil
}

// Remaining returns how many unused codes the account still has. Zero is a
// valid terminal state signaling the caller should prompt regeneration.
func (m *Manager) Remaining(ctx context.Context, accountID string) (int, error) {
	if accountID == "" {
		return 0, ErrAccountIDRequired
	}

	codes, err := m.load(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return len(codes), nil
}

// Delete removes the account's code set. Idempotent.
func (m *Manager) Delete(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrAccountIDRequired
	}
	return m.store.Delete(ctx, keyPrefix+accountID)
}

func (m *Manager) load(ctx context.Context, accountID string) ([]string, error) {
	ciphertext, err := m.store.Get(ctx, keyPrefix+accountID)
	if err != nil {
		return nil, err
	}

	plaintext, err := secrets.DecryptString(m.appKey, accountID, ciphertext)
	if err != nil {
		return nil, err
	}

	var codes []string
	if err := json.Unmarshal([]byte(plaintext), &codes); err != nil {
		return nil, errors.Join(ErrCorruptCodeSet, err)
	}
	return codes, nil
}

func (m *Manager) persist(ctx context.Context, accountID string, codes []string) error {
	plaintext, err := json.Marshal(codes)
	if err != nil {
		return errors.Join(ErrCorruptCodeSet, err)
	}

	ciphertext, err := secrets.EncryptString(m.appKey, accountID, string(plaintext))
	if err != nil {
		return err
	}
	return m.store.Set(ctx, keyPrefix+accountID, ciphertext)
}

// generateCode draws CodeLength characters uniformly from codeAlphabet using
// rejection sampling, so no character is statistically favored.
func generateCode() (string, error) {
	// Largest multiple of len(codeAlphabet) below 256
	limit := byte(256 / len(codeAlphabet) * len(codeAlphabet))

	code := make([]byte, 0, CodeLength)
	buf := make([]byte, 1)
	for len(code) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Join(ErrFailedToGenerateCode, err)
		}
		if buf[0] >= limit {
			continue
		}
		code = append(code, codeAlphabet[int(buf[0])%len(codeAlphabet)])
	}
	return string(code), nil
}
