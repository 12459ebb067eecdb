package pg

import "errors"

var (
	ErrFailedToOpenConnection = errors.New("failed to open db connection")
	ErrFailedToParseConfig    = errors.New("failed to parse db config")
	ErrHealthcheckFailed      = errors.New("postgres healthcheck failed")
)
