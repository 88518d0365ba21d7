package twofactor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is the persisted second-factor state of one identity.
type Record struct {
	IdentityID   uuid.UUID
	SealedSecret string // AES-256-GCM, bound to IdentityID, see totp.SealSecret
	Enabled      bool
	CreatedAt    time.Time
	ConfirmedAt  time.Time // zero until enabled
}

// Challenge binds a pending login to an identity. Only the token hash is stored.
type Challenge struct {
	TokenHash  string
	IdentityID uuid.UUID
	ExpiresAt  time.Time
}

// Store persists enrollments, backup code hashes and login challenges.
// Lookups of missing entries return ErrNotFound.
type Store interface {
	// SaveEnrollment replaces any record, backup codes and challenges of the identity.
	SaveEnrollment(ctx context.Context, rec Record, backupHashes []string) error
	GetEnrollment(ctx context.Context, identityID uuid.UUID) (Record, error)
	MarkEnabled(ctx context.Context, identityID uuid.UUID, at time.Time) error
	// DeleteEnrollment destroys the secret, every backup code and open challenges.
	DeleteEnrollment(ctx context.Context, identityID uuid.UUID) error

	ReplaceBackupCodes(ctx context.Context, identityID uuid.UUID, hashes []string) error
	// ConsumeBackupCode atomically marks one unused code as used. Of several
	// concurrent calls with the same hash at most one returns true.
	ConsumeBackupCode(ctx context.Context, identityID uuid.UUID, hash string) (bool, error)
	CountBackupCodes(ctx context.Context, identityID uuid.UUID) (int, error)

	SaveChallenge(ctx context.Context, c Challenge) error
	GetChallenge(ctx context.Context, tokenHash string) (Challenge, error)
	DeleteChallenge(ctx context.Context, tokenHash string) error
}
