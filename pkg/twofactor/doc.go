// Package twofactor implements the server side of TOTP second-factor
// authentication.
//
// # Setup
//
// Setup generates a secret, an otpauth URI with its QR code, and a set of
// single-use backup codes (at least MinBackupCodes). Everything is returned
// once and stored as pending: the secret sealed with AES-256-GCM, the backup
// codes as SHA-256 hashes. Confirm enables the factor after the user submits a
// live code; until then IsEnabled reports false and no challenge can be issued.
//
// # Login challenge
//
// After password verification BeginChallenge issues an opaque pending token.
// VerifyChallenge accepts a live code (±1 time step) or a backup code for that
// token and returns the identity to sign in:
//
//	token, _, err := svc.BeginChallenge(ctx, userID)
//	...
//	userID, err := svc.VerifyChallenge(ctx, token, code)
//	switch {
//	case errors.Is(err, auth.ErrTwoFactorRateLimited):
//	    // locked, stop retrying
//	case errors.Is(err, auth.ErrInvalidTwoFactorCode):
//	    // wrong code; a spent backup code looks the same
//	}
//
// Every submission reserves an attempt per pending token with pkg/ratelimiter
// before its code is checked. After Config.MaxAttempts attempts without a
// success every further one reports auth.ErrTwoFactorRateLimited until
// Config.Lockout has passed.
//
// # Management
//
// Disable and RegenerateBackupCodes require one more valid code and are
// throttled per identity.
//
// # Storage
//
// MemoryStore, RedisStore and PostgresStore implement Store. Backup codes are
// consumed atomically in each: of two concurrent uses of one code exactly one
// succeeds. PostgresStore expects the schema in Migrations:
//
//	if err := pg.Migrate(ctx, pool, twofactor.Migrations, pgCfg, log); err != nil {
//	    return err
//	}
package twofactor
