package twofactor

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps second-factor state in Redis. Backup code hashes live in
// a set so SREM decides which of two concurrent uses wins.
//
// Keys:
//
//	{prefix}enrollment:{id}  hash  secret, enabled, created_at, confirmed_at
//	{prefix}codes:{id}       set   unused backup code hashes
//	{prefix}challenges:{id}  set   open challenge token hashes
//	{prefix}challenge:{hash} hash  identity_id, expires_at (expires with the challenge)
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. An empty prefix defaults to "2fa:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "2fa:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) enrollmentKey(id uuid.UUID) string { return s.prefix + "enrollment:" + id.String() }
func (s *RedisStore) codesKey(id uuid.UUID) string      { return s.prefix + "codes:" + id.String() }
func (s *RedisStore) openKey(id uuid.UUID) string       { return s.prefix + "challenges:" + id.String() }
func (s *RedisStore) challengeKey(hash string) string   { return s.prefix + "challenge:" + hash }

func (s *RedisStore) SaveEnrollment(ctx context.Context, rec Record, backupHashes []string) error {
	open, err := s.client.SMembers(ctx, s.openKey(rec.IdentityID)).Result()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		s.dropChallenges(ctx, p, rec.IdentityID, open)
		p.Del(ctx, s.enrollmentKey(rec.IdentityID), s.codesKey(rec.IdentityID))
		p.HSet(ctx, s.enrollmentKey(rec.IdentityID), encodeRecord(rec))
		if len(backupHashes) > 0 {
			p.SAdd(ctx, s.codesKey(rec.IdentityID), toAny(backupHashes)...)
		}
		return nil
	})
	return err
}

func (s *RedisStore) GetEnrollment(ctx context.Context, identityID uuid.UUID) (Record, error) {
	fields, err := s.client.HGetAll(ctx, s.enrollmentKey(identityID)).Result()
	if err != nil {
		return Record{}, err
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}
	return decodeRecord(identityID, fields)
}

func (s *RedisStore) MarkEnabled(ctx context.Context, identityID uuid.UUID, at time.Time) error {
	key := s.enrollmentKey(identityID)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "enabled", "1", "confirmed_at", strconv.FormatInt(at.UnixNano(), 10))
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) DeleteEnrollment(ctx context.Context, identityID uuid.UUID) error {
	open, err := s.client.SMembers(ctx, s.openKey(identityID)).Result()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		s.dropChallenges(ctx, p, identityID, open)
		p.Del(ctx, s.enrollmentKey(identityID), s.codesKey(identityID))
		return nil
	})
	return err
}

func (s *RedisStore) ReplaceBackupCodes(ctx context.Context, identityID uuid.UUID, hashes []string) error {
	n, err := s.client.Exists(ctx, s.enrollmentKey(identityID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.codesKey(identityID))
		if len(hashes) > 0 {
			p.SAdd(ctx, s.codesKey(identityID), toAny(hashes)...)
		}
		return nil
	})
	return err
}

func (s *RedisStore) ConsumeBackupCode(ctx context.Context, identityID uuid.UUID, hash string) (bool, error) {
	n, err := s.client.SRem(ctx, s.codesKey(identityID), hash).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) CountBackupCodes(ctx context.Context, identityID uuid.UUID) (int, error) {
	n, err := s.client.SCard(ctx, s.codesKey(identityID)).Result()
	return int(n), err
}

func (s *RedisStore) SaveChallenge(ctx context.Context, c Challenge) error {
	key := s.challengeKey(c.TokenHash)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"identity_id", c.IdentityID.String(),
			"expires_at", strconv.FormatInt(c.ExpiresAt.UnixNano(), 10),
		)
		p.PExpireAt(ctx, key, c.ExpiresAt)
		p.SAdd(ctx, s.openKey(c.IdentityID), c.TokenHash)
		return nil
	})
	return err
}

func (s *RedisStore) GetChallenge(ctx context.Context, tokenHash string) (Challenge, error) {
	fields, err := s.client.HGetAll(ctx, s.challengeKey(tokenHash)).Result()
	if err != nil {
		return Challenge{}, err
	}
	if len(fields) == 0 {
		return Challenge{}, ErrNotFound
	}
	id, err := uuid.Parse(fields["identity_id"])
	if err != nil {
		return Challenge{}, errors.Join(ErrStore, err)
	}
	exp, err := parseNanos(fields["expires_at"])
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{TokenHash: tokenHash, IdentityID: id, ExpiresAt: exp}, nil
}

func (s *RedisStore) DeleteChallenge(ctx context.Context, tokenHash string) error {
	c, err := s.GetChallenge(ctx, tokenHash)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.challengeKey(tokenHash))
		p.SRem(ctx, s.openKey(c.IdentityID), tokenHash)
		return nil
	})
	return err
}

func (s *RedisStore) dropChallenges(ctx context.Context, p redis.Pipeliner, identityID uuid.UUID, open []string) {
	for _, hash := range open {
		p.Del(ctx, s.challengeKey(hash))
	}
	p.Del(ctx, s.openKey(identityID))
}

func encodeRecord(rec Record) map[string]any {
	enabled := "0"
	if rec.Enabled {
		enabled = "1"
	}
	fields := map[string]any{
		"secret":     rec.SealedSecret,
		"enabled":    enabled,
		"created_at": strconv.FormatInt(rec.CreatedAt.UnixNano(), 10),
	}
	if !rec.ConfirmedAt.IsZero() {
		fields["confirmed_at"] = strconv.FormatInt(rec.ConfirmedAt.UnixNano(), 10)
	}
	return fields
}

func decodeRecord(id uuid.UUID, fields map[string]string) (Record, error) {
	created, err := parseNanos(fields["created_at"])
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		IdentityID:   id,
		SealedSecret: fields["secret"],
		Enabled:      fields["enabled"] == "1",
		CreatedAt:    created,
	}
	if v, ok := fields["confirmed_at"]; ok {
		if rec.ConfirmedAt, err = parseNanos(v); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

func parseNanos(v string) (time.Time, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, errors.Join(ErrStore, err)
	}
	return time.Unix(0, n).UTC(), nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
