package otp

import "errors"

var (
	ErrFailedToGenerateSecret = errors.New("failed to generate shared secret")
	ErrMissingSecret          = errors.New("missing secret")
	ErrInvalidSecret          = errors.New("invalid secret")
	ErrMissingAccountName     = errors.New("missing account name")
	ErrMissingIssuer          = errors.New("missing issuer")
	ErrInvalidAlgorithm       = errors.New("invalid algorithm")
	ErrInvalidConfig          = errors.New("invalid configuration")
)
