package twofactor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/accesskit/pkg/pg"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps second-factor state in the tables created by Migrations.
// A backup code is consumed with a conditional UPDATE, so only one of several
// concurrent uses affects a row.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveEnrollment(ctx context.Context, rec Record, backupHashes []string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO two_factor_enrollments (identity_id, sealed_secret, enabled, created_at, confirmed_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (identity_id) DO UPDATE
			SET sealed_secret = EXCLUDED.sealed_secret,
			    enabled       = EXCLUDED.enabled,
			    created_at    = EXCLUDED.created_at,
			    confirmed_at  = EXCLUDED.confirmed_at`,
			rec.IdentityID, rec.SealedSecret, rec.Enabled, rec.CreatedAt, nullTime(rec.ConfirmedAt),
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM two_factor_challenges WHERE identity_id = $1`, rec.IdentityID); err != nil {
			return err
		}
		return replaceCodes(ctx, tx, rec.IdentityID, backupHashes)
	})
}

func (s *PostgresStore) GetEnrollment(ctx context.Context, identityID uuid.UUID) (Record, error) {
	rec := Record{IdentityID: identityID}
	var confirmed *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT sealed_secret, enabled, created_at, confirmed_at
		FROM two_factor_enrollments WHERE identity_id = $1`, identityID,
	).Scan(&rec.SealedSecret, &rec.Enabled, &rec.CreatedAt, &confirmed)
	if pg.IsNotFoundError(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if confirmed != nil {
		rec.ConfirmedAt = *confirmed
	}
	return rec, nil
}

func (s *PostgresStore) MarkEnabled(ctx context.Context, identityID uuid.UUID, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE two_factor_enrollments SET enabled = TRUE, confirmed_at = $2
		WHERE identity_id = $1`, identityID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteEnrollment(ctx context.Context, identityID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM two_factor_enrollments WHERE identity_id = $1`, identityID)
	return err
}

func (s *PostgresStore) ReplaceBackupCodes(ctx context.Context, identityID uuid.UUID, hashes []string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM two_factor_enrollments WHERE identity_id = $1)`,
			identityID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return replaceCodes(ctx, tx, identityID, hashes)
	})
}

func (s *PostgresStore) ConsumeBackupCode(ctx context.Context, identityID uuid.UUID, hash string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE two_factor_backup_codes SET used_at = now()
		WHERE identity_id = $1 AND code_hash = $2 AND used_at IS NULL`, identityID, hash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) CountBackupCodes(ctx context.Context, identityID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM two_factor_backup_codes
		WHERE identity_id = $1 AND used_at IS NULL`, identityID).Scan(&n)
	return n, err
}

func (s *PostgresStore) SaveChallenge(ctx context.Context, c Challenge) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO two_factor_challenges (token_hash, identity_id, expires_at)
		VALUES ($1, $2, $3)`, c.TokenHash, c.IdentityID, c.ExpiresAt)
	if pg.IsForeignKeyViolationError(err) {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) GetChallenge(ctx context.Context, tokenHash string) (Challenge, error) {
	c := Challenge{TokenHash: tokenHash}
	err := s.db.QueryRow(ctx, `
		SELECT identity_id, expires_at FROM two_factor_challenges WHERE token_hash = $1`, tokenHash,
	).Scan(&c.IdentityID, &c.ExpiresAt)
	if pg.IsNotFoundError(err) {
		return Challenge{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) DeleteChallenge(ctx context.Context, tokenHash string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM two_factor_challenges WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteExpiredChallenges removes challenges that expired before now and
// reports how many were removed. Run it periodically.
func (s *PostgresStore) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM two_factor_challenges WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func replaceCodes(ctx context.Context, tx pgx.Tx, identityID uuid.UUID, hashes []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM two_factor_backup_codes WHERE identity_id = $1`, identityID); err != nil {
		return err
	}
	if len(hashes) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO two_factor_backup_codes (identity_id, code_hash)
		SELECT $1, unnest($2::text[])`, identityID, hashes)
	return err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
