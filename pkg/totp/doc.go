// Package totp implements RFC 6238 time-based one-time passwords together
// with the helpers needed to run them safely: AES-256-GCM sealing of stored
// secrets, otpauth:// enrollment URIs and hashed single-use backup codes.
//
// Codes are SHA1, 6 digits, 30 second steps. Validation is time-injectable:
//
//	ok, err := totp.ValidateTOTPAt(secret, code, now, totp.DefaultSkew)
//
// accepts the step containing now and one step either side (±30s). A code
// with the wrong shape returns ErrInvalidOTP; a well-formed wrong code
// returns false with a nil error. Codes are strings so leading zeros survive.
//
// Backup codes are 16 uppercase hex characters. Only HashRecoveryCode output
// should be persisted; input is normalized (case, spaces, dashes) before
// hashing.
//
// The encryption key is configured as base64 in TOTP_ENCRYPTION_KEY; use
// DecodeEncryptionKey to load it and cmd/totpkey to generate one.
package totp
