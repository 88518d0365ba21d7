package totp

import "errors"

// Key and sealing errors.
var (
	ErrKeyNotSet      = errors.New("totp.key_not_set")
	ErrKeyLength      = errors.New("totp.key_length")
	ErrKeyMalformed   = errors.New("totp.key_malformed")
	ErrSealFailed     = errors.New("totp.seal_failed")
	ErrOpenFailed     = errors.New("totp.open_failed")
	ErrSealedTooShort = errors.New("totp.sealed_too_short")
)

// Code and enrollment errors.
var (
	ErrMissingSecret      = errors.New("totp.missing_secret")
	ErrInvalidSecret      = errors.New("totp.invalid_secret")
	ErrMissingAccountName = errors.New("totp.missing_account_name")
	ErrMissingIssuer      = errors.New("totp.missing_issuer")
	ErrInvalidOTP         = errors.New("totp.invalid_otp")
	ErrSecretGeneration   = errors.New("totp.secret_generation")
	ErrRecoveryCodeCount  = errors.New("totp.recovery_code_count")
	ErrRecoveryGeneration = errors.New("totp.recovery_generation")
)
