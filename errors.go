package twofactor

import "errors"

// Failure taxonomy for the verification flow. Every failure VerifyCode can
// produce wraps exactly one of these sentinels, so callers branch with
// errors.Is instead of string matching.
var (
	// ErrProvisioning reports that secret or backup-code generation, or the
	// store write during enrollment, failed.
	ErrProvisioning = errors.New("provisioning failed")

	// ErrBadFormat reports a candidate that is neither a well-formed TOTP
	// code nor a well-formed backup code.
	ErrBadFormat = errors.New("malformed code")

	// ErrRateLimited reports that the account exhausted its attempt budget
	// for the current window.
	ErrRateLimited = errors.New("rate limited")

	// ErrReplayed reports a code that was already accepted and is still
	// inside its validity window.
	ErrReplayed = errors.New("code already used")

	// ErrNotEnrolled reports that no secret exists for the account.
	ErrNotEnrolled = errors.New("account not enrolled")

	// ErrInvalidCode reports a candidate that matched neither the TOTP
	// window nor the backup-code set.
	ErrInvalidCode = errors.New("invalid code")

	// ErrStorage reports that the underlying store was unreachable. Never
	// conflated with ErrNotEnrolled: absence of a secret is an answer,
	// an unreachable store is not.
	ErrStorage = errors.New("storage unavailable")

	// ErrAccountIDRequired reports an empty account identifier.
	ErrAccountIDRequired = errors.New("account id is required")

	// Configuration errors.
	ErrInvalidMaxAttempts   = errors.New("max attempts must be positive")
	ErrInvalidAttemptWindow = errors.New("attempt window must be positive")
	ErrStoreRequired        = errors.New("store is required")
)
