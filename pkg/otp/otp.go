package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"hash"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// SecretSize is the raw secret length in bytes (256 bits).
	SecretSize = 32

	DefaultDigits    = 6             // Standard 6-digit TOTP codes
	DefaultPeriod    = 30            // 30-second validity window (RFC 6238 standard)
	DefaultTolerance = 1             // Accept one time step of clock skew in each direction
	DefaultAlgorithm = AlgorithmSHA1 // HMAC-SHA1 (RFC 6238 standard)
)

// ValidSecretRegex ensures Base32 format: uppercase A-Z, digits 2-7, optional padding.
var ValidSecretRegex = regexp.MustCompile("^[A-Z2-7]+=*$")

// base32NoPadding is the encoding used for secrets throughout the package.
// Authenticator apps expect unpadded Base32 in provisioning URIs.
var base32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret generates a new Base32-encoded 256-bit shared secret.
func GenerateSecret() (string, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecret, err)
	}
	return base32NoPadding.EncodeToString(secret), nil
}

// DecodeSecret decodes a Base32 secret into raw key bytes. It tolerates
// lowercase input and surrounding whitespace, which users introduce when
// typing secrets by hand.
func DecodeSecret(secret string) ([]byte, error) {
	secret = strings.TrimSpace(strings.ToUpper(secret))
	if !ValidSecretRegex.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	key, err := base32NoPadding.DecodeString(strings.TrimRight(secret, "="))
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return key, nil
}

// URIParams contains the parameters for provisioning URI generation.
type URIParams struct {
	Secret      string    // Base32-encoded shared secret (required)
	AccountName string    // User identifier like email (required)
	Issuer      string    // Service name displayed in authenticator apps (required)
	Algorithm   Algorithm // HMAC algorithm (optional, defaults to SHA1)
	Digits      int       // Number of digits in generated codes (optional, defaults to 6)
	Period      int       // Code validity period in seconds (optional, defaults to 30)
}

// Validate ensures all required URI parameters are present and valid.
func (p URIParams) Validate() error {
	if p.Secret == "" {
		return ErrMissingSecret
	}
	if !ValidSecretRegex.MatchString(p.Secret) {
		return ErrInvalidSecret
	}
	if p.AccountName == "" {
		return ErrMissingAccountName
	}
	if p.Issuer == "" {
		return ErrMissingIssuer
	}
	if p.Algorithm != "" {
		if _, err := p.Algorithm.Hash(); err != nil {
			return err
		}
	}
	return nil
}

// GetDefaults returns a copy with RFC 6238 standard defaults applied to zero-valued fields.
func (p URIParams) GetDefaults() URIParams {
	if p.Algorithm == "" {
		p.Algorithm = DefaultAlgorithm
	}
	if p.Digits == 0 {
		p.Digits = DefaultDigits
	}
	if p.Period == 0 {
		p.Period = DefaultPeriod
	}
	return p
}

// BuildURI creates a properly encoded otpauth:// URI for use with
// authenticator apps. The URI follows the Key Uri Format:
// https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func BuildURI(params URIParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	params = params.GetDefaults()

	label := fmt.Sprintf("%s:%s",
		url.PathEscape(params.Issuer),
		url.PathEscape(params.AccountName),
	)

	query := url.Values{}
	query.Set("secret", params.Secret)
	query.Set("issuer", params.Issuer)
	query.Set("algorithm", string(params.Algorithm))
	query.Set("digits", fmt.Sprintf("%d", params.Digits))
	query.Set("period", fmt.Sprintf("%d", params.Period))

	return fmt.Sprintf("otpauth://totp/%s?%s", label, query.Encode()), nil
}

// ValidCandidate reports whether candidate is a plausible code: numeric and
// exactly digits characters. Callers use it to reject garbage before any
// HMAC work is done.
func ValidCandidate(candidate string, digits int) bool {
	if len(candidate) != digits {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		if candidate[i] < '0' || candidate[i] > '9' {
			return false
		}
	}
	return true
}

// TimeStep returns the HOTP counter for the given moment: floor(unix / period).
func TimeStep(t time.Time, period int) int64 {
	return t.Unix() / int64(period)
}

// ComputeCode calculates the code for a single time step. The result is
// zero-padded to exactly digits characters.
func ComputeCode(secret string, step int64, algorithm Algorithm, digits int) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	h, err := algorithm.Hash()
	if err != nil {
		return "", err
	}
	code := hotp(key, step, h, digits)
	return fmt.Sprintf("%0*d", digits, code), nil
}

// Verify checks candidate against the codes for the time steps surrounding
// now. The current step is tried first, then offsets of ascending magnitude,
// so the smallest clock skew wins on a match. Returns false without any HMAC
// computation when the candidate is malformed.
func Verify(secret, candidate string, now time.Time, cfg Config) (bool, error) {
	cfg = cfg.GetDefaults()

	if !ValidCandidate(candidate, cfg.Digits) {
		return false, nil
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return false, err
	}
	h, err := cfg.Algorithm.Hash()
	if err != nil {
		return false, err
	}

	current := TimeStep(now, cfg.Period)
	for _, k := range windowOffsets(cfg.Tolerance) {
		code := hotp(key, current+k, h, cfg.Digits)
		if fmt.Sprintf("%0*d", cfg.Digits, code) == candidate {
			return true, nil
		}
	}
	return false, nil
}

// windowOffsets returns 0, -1, +1, -2, +2, ... up to ±tolerance.
func windowOffsets(tolerance int) []int64 {
	offsets := make([]int64, 0, 2*tolerance+1)
	offsets = append(offsets, 0)
	for k := int64(1); k <= int64(tolerance); k++ {
		offsets = append(offsets, -k, k)
	}
	return offsets
}

// hotp implements the RFC 4226 HMAC-based One-Time Password algorithm:
// HMAC over the big-endian counter, then dynamic truncation to a 31-bit
// integer reduced to the desired number of digits.
func hotp(key []byte, counter int64, newHash func() hash.Hash, digits int) int {
	// Convert counter to big-endian 8-byte array (RFC 4226 requirement)
	counterBytes := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		counterBytes[i] = byte(counter & 0xff)
		counter = counter >> 8
	}

	mac := hmac.New(newHash, key)
	mac.Write(counterBytes)
	sum := mac.Sum(nil)

	// Dynamic truncation (RFC 4226): use last 4 bits as offset into the digest
	offset := sum[len(sum)-1] & 0x0f
	// Extract 31-bit value (clear MSB to ensure positive number)
	code := (int(sum[offset]&0x7f) << 24) |
		(int(sum[offset+1]&0xff) << 16) |
		(int(sum[offset+2]&0xff) << 8) |
		(int(sum[offset+3] & 0xff))

	return code % int(math.Pow10(digits))
}
