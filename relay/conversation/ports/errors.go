package ports

import "errors"

var (
	ErrGenerationFailed  = errors.New("generation failed")
	ErrStoreUnavailable  = errors.New("history store unavailable")
	ErrValidationFailed  = errors.New("validation failed")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
