package backup

import "errors"

var (
	ErrStoreRequired        = errors.New("store is required")
	ErrAccountIDRequired    = errors.New("account id is required")
	ErrFailedToGenerateCode = errors.New("failed to generate backup code")
	ErrCorruptCodeSet       = errors.New("corrupt backup code set")
)
