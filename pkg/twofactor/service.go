package twofactor

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/logger"
	"github.com/dmitrymomot/accesskit/pkg/ratelimiter"
	"github.com/dmitrymomot/accesskit/pkg/totp"
)

// Enrollment is returned once by Setup. Secret and BackupCodes are never
// retrievable again.
type Enrollment struct {
	Secret      string
	URI         string // otpauth://
	QRCode      string // PNG data URI of URI
	BackupCodes []string
}

// Service runs the server side of the second-factor protocol: setup and
// confirmation, the login challenge, and proof-gated management.
type Service struct {
	store        Store
	cfg          Config
	key          []byte
	limiter      *ratelimiter.Limiter
	limiterStore ratelimiter.Store
	ownedStore   *ratelimiter.MemoryStore
	now          func() time.Time
	logger       *slog.Logger
}

// New creates a service. The encryption key in cfg is required.
func New(store Store, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("nil store"))
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	key, err := totp.DecodeEncryptionKey(cfg.EncryptionKey)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	s := &Service{
		store:  store,
		cfg:    cfg,
		key:    key,
		now:    time.Now,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("twofactor"))

	if s.limiterStore == nil {
		s.ownedStore = ratelimiter.NewMemoryStore(ratelimiter.WithClock(s.now))
		s.limiterStore = s.ownedStore
	}
	s.limiter, err = ratelimiter.New(s.limiterStore, ratelimiter.Config{
		MaxAttempts: cfg.MaxAttempts,
		Lockout:     cfg.Lockout,
	})
	if err != nil {
		s.Close()
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return s, nil
}

// Close releases the in-process limiter store, if the service created one.
func (s *Service) Close() {
	if s.ownedStore != nil {
		s.ownedStore.Close()
	}
}

// Setup starts enrollment: a fresh secret and backup codes, stored as
// pending. Calling it again before Confirm replaces the pending setup.
func (s *Service) Setup(ctx context.Context, identityID uuid.UUID, accountName string) (*Enrollment, error) {
	rec, err := s.store.GetEnrollment(ctx, identityID)
	switch {
	case err == nil && rec.Enabled:
		return nil, auth.ErrTwoFactorAlreadyEnabled
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, errors.Join(ErrStore, err)
	}

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return nil, err
	}
	uri, err := totp.URI(totp.URIParams{Secret: secret, AccountName: accountName, Issuer: s.cfg.Issuer})
	if err != nil {
		return nil, err
	}
	qr, err := qrDataURI(uri, s.cfg.QRSize)
	if err != nil {
		return nil, err
	}
	codes, err := totp.GenerateRecoveryCodes(s.cfg.BackupCodes)
	if err != nil {
		return nil, err
	}
	sealed, err := totp.SealSecret(secret, s.key, identityID[:])
	if err != nil {
		return nil, err
	}

	rec = Record{IdentityID: identityID, SealedSecret: sealed, CreatedAt: s.now()}
	if err := s.store.SaveEnrollment(ctx, rec, hashCodes(codes)); err != nil {
		return nil, errors.Join(ErrStore, err)
	}

	s.logger.InfoContext(ctx, "second factor setup started", logger.IdentityID(identityID))
	return &Enrollment{Secret: secret, URI: uri, QRCode: qr, BackupCodes: codes}, nil
}

// Confirm enables the pending setup once the user proves the authenticator
// produces valid codes. Only live codes are accepted here.
func (s *Service) Confirm(ctx context.Context, identityID uuid.UUID, code string) error {
	rec, err := s.store.GetEnrollment(ctx, identityID)
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNoPendingSetup
	case err != nil:
		return errors.Join(ErrStore, err)
	case rec.Enabled:
		return auth.ErrTwoFactorAlreadyEnabled
	}
	if !totp.IsCode(code) {
		return auth.ErrInvalidCodeFormat
	}

	key := "confirm:" + identityID.String()
	if err := s.attempt(ctx, key); err != nil {
		return err
	}
	ok, err := s.validateTOTP(rec, code)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ErrInvalidTwoFactorCode
	}

	if err := s.store.MarkEnabled(ctx, identityID, s.now()); err != nil {
		return errors.Join(ErrStore, err)
	}
	s.reset(ctx, key)
	s.logger.InfoContext(ctx, "second factor enabled", logger.IdentityID(identityID))
	return nil
}

// IsEnabled reports whether the identity has a confirmed second factor.
func (s *Service) IsEnabled(ctx context.Context, identityID uuid.UUID) (bool, error) {
	rec, err := s.store.GetEnrollment(ctx, identityID)
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, errors.Join(ErrStore, err)
	}
	return rec.Enabled, nil
}

// BeginChallenge issues a pending token after password verification.
// The token grants nothing until VerifyChallenge accepts a code for it.
func (s *Service) BeginChallenge(ctx context.Context, identityID uuid.UUID) (string, time.Time, error) {
	enabled, err := s.IsEnabled(ctx, identityID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !enabled {
		return "", time.Time{}, auth.ErrTwoFactorNotEnabled
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	expiresAt := s.now().Add(s.cfg.ChallengeTTL)

	if err := s.store.SaveChallenge(ctx, Challenge{
		TokenHash:  hashToken(token),
		IdentityID: identityID,
		ExpiresAt:  expiresAt,
	}); err != nil {
		return "", time.Time{}, errors.Join(ErrStore, err)
	}
	return token, expiresAt, nil
}

// VerifyChallenge completes a login challenge with a live code or a backup
// code and returns the identity it was issued for. A consumed backup code is
// indistinguishable from one that never existed.
func (s *Service) VerifyChallenge(ctx context.Context, pendingToken, code string) (uuid.UUID, error) {
	if pendingToken == "" {
		return uuid.Nil, auth.ErrInvalidPendingToken
	}
	tokenHash := hashToken(pendingToken)

	ch, err := s.store.GetChallenge(ctx, tokenHash)
	switch {
	case errors.Is(err, ErrNotFound):
		return uuid.Nil, auth.ErrInvalidPendingToken
	case err != nil:
		return uuid.Nil, errors.Join(ErrStore, err)
	case !s.now().Before(ch.ExpiresAt):
		_ = s.store.DeleteChallenge(ctx, tokenHash)
		return uuid.Nil, auth.ErrInvalidPendingToken
	}

	key := "challenge:" + tokenHash
	if err := s.attempt(ctx, key); err != nil {
		return uuid.Nil, err
	}

	ok, err := s.verify(ctx, ch.IdentityID, code)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, auth.ErrInvalidTwoFactorCode
	}

	if err := s.store.DeleteChallenge(ctx, tokenHash); err != nil {
		s.logger.WarnContext(ctx, "delete challenge", logger.Error(err))
	}
	s.reset(ctx, key)
	return ch.IdentityID, nil
}

// Disable destroys the secret and all backup codes after one more successful
// verification.
func (s *Service) Disable(ctx context.Context, identityID uuid.UUID, code string) error {
	if err := s.prove(ctx, identityID, code); err != nil {
		return err
	}
	if err := s.store.DeleteEnrollment(ctx, identityID); err != nil {
		return errors.Join(ErrStore, err)
	}
	s.logger.InfoContext(ctx, "second factor disabled", logger.IdentityID(identityID))
	return nil
}

// RegenerateBackupCodes replaces every backup code after a successful
// verification and returns the new set.
func (s *Service) RegenerateBackupCodes(ctx context.Context, identityID uuid.UUID, code string) ([]string, error) {
	if err := s.prove(ctx, identityID, code); err != nil {
		return nil, err
	}
	codes, err := totp.GenerateRecoveryCodes(s.cfg.BackupCodes)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceBackupCodes(ctx, identityID, hashCodes(codes)); err != nil {
		return nil, errors.Join(ErrStore, err)
	}
	s.logger.InfoContext(ctx, "backup codes regenerated", logger.IdentityID(identityID))
	return codes, nil
}

// RemainingBackupCodes counts unused backup codes.
func (s *Service) RemainingBackupCodes(ctx context.Context, identityID uuid.UUID) (int, error) {
	n, err := s.store.CountBackupCodes(ctx, identityID)
	if err != nil {
		return 0, errors.Join(ErrStore, err)
	}
	return n, nil
}

// prove requires an enabled second factor and a valid code for it.
func (s *Service) prove(ctx context.Context, identityID uuid.UUID, code string) error {
	enabled, err := s.IsEnabled(ctx, identityID)
	if err != nil {
		return err
	}
	if !enabled {
		return auth.ErrTwoFactorNotEnabled
	}

	key := "manage:" + identityID.String()
	if err := s.attempt(ctx, key); err != nil {
		return err
	}
	ok, err := s.verify(ctx, identityID, code)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ErrInvalidTwoFactorCode
	}
	s.reset(ctx, key)
	return nil
}

// verify accepts a live code or consumes a backup code. Malformed input is
// simply not valid and still counts as an attempt.
func (s *Service) verify(ctx context.Context, identityID uuid.UUID, code string) (bool, error) {
	switch {
	case totp.IsCode(code):
		rec, err := s.store.GetEnrollment(ctx, identityID)
		if errors.Is(err, ErrNotFound) || (err == nil && !rec.Enabled) {
			return false, nil
		}
		if err != nil {
			return false, errors.Join(ErrStore, err)
		}
		return s.validateTOTP(rec, code)
	case totp.IsRecoveryCode(code):
		ok, err := s.store.ConsumeBackupCode(ctx, identityID, totp.HashRecoveryCode(code))
		if err != nil {
			return false, errors.Join(ErrStore, err)
		}
		return ok, nil
	default:
		return false, nil
	}
}

func (s *Service) validateTOTP(rec Record, code string) (bool, error) {
	secret, err := totp.OpenSecret(rec.SealedSecret, s.key, rec.IdentityID[:])
	if err != nil {
		return false, err
	}
	return totp.ValidateTOTPAt(secret, code, s.now(), totp.DefaultSkew)
}

// attempt reserves one verification against key. Every submission is counted
// before its code is looked at, so in-flight requests cannot share a slot.
func (s *Service) attempt(ctx context.Context, key string) error {
	_, err := s.limiter.Attempt(ctx, key)
	switch {
	case errors.Is(err, ratelimiter.ErrLimitExceeded):
		return auth.ErrTwoFactorRateLimited
	case err != nil:
		return err
	}
	return nil
}

func (s *Service) reset(ctx context.Context, key string) {
	if err := s.limiter.Reset(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "reset attempt counter", logger.Error(err))
	}
}

func hashCodes(codes []string) []string {
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = totp.HashRecoveryCode(c)
	}
	return hashes
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
