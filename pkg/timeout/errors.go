package timeout

import "errors"

var (
	ErrInactive       = errors.New("timeout: no authenticated session")
	ErrExtendInFlight = errors.New("timeout: extension already in progress")
)
