package twofactor

import "errors"

// Protocol failures are reported with the auth sentinels (auth.ErrInvalidTwoFactorCode,
// auth.ErrInvalidPendingToken, auth.ErrTwoFactorRateLimited, ...). The errors
// below are specific to this package.
var (
	ErrInvalidConfig  = errors.New("twofactor.invalid_config")
	ErrNoPendingSetup = errors.New("twofactor.no_pending_setup")
	ErrNotFound       = errors.New("twofactor.not_found")
	ErrStore          = errors.New("twofactor.store_failure")
	ErrQRCode         = errors.New("twofactor.qr_code_failure")
)
