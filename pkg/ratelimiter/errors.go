package ratelimiter

import "errors"

var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrLimitExceeded    = errors.New("attempt limit exceeded")
)
