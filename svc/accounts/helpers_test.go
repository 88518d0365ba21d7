package accounts_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/accesskit/pkg/audit"
	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/totp"
	"github.com/dmitrymomot/accesskit/pkg/twofactor"
	"github.com/dmitrymomot/accesskit/svc/accounts"
)

const password = "correct horse battery"

// t0 sits on a 30 second boundary.
var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	srv   *accounts.Server
	clock *clock
	trail *audit.Trail
}

func newEnv(t *testing.T, mutate ...func(*accounts.Config)) *env {
	t.Helper()
	c := &clock{now: t0}

	key, err := totp.GenerateEncodedEncryptionKey()
	require.NoError(t, err)
	tf, err := twofactor.New(twofactor.NewMemoryStore(), twofactor.Config{
		EncryptionKey: key,
		Issuer:        "AccessKit",
	}, twofactor.WithClock(c.Now))
	require.NoError(t, err)
	t.Cleanup(tf.Close)

	cfg := accounts.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	cfg.SessionTTL = 100 * time.Second
	for _, m := range mutate {
		m(&cfg)
	}
	trail := audit.New(audit.NewMemoryStore(), audit.WithClock(c.Now))
	return &env{
		srv:   accounts.New(tf, cfg, accounts.WithClock(c.Now), accounts.WithAudit(trail)),
		clock: c,
		trail: trail,
	}
}

func (e *env) account(t *testing.T, email string, state accounts.AccountState, roles ...auth.GlobalRole) *auth.Identity {
	t.Helper()
	id, err := e.srv.CreateAccount(context.Background(), auth.Registration{Email: email, Password: password}, state, roles...)
	require.NoError(t, err)
	return id
}

func (e *env) org(t *testing.T, owner uuid.UUID, name string) *auth.Organization {
	t.Helper()
	org, err := e.srv.CreateOrganization(context.Background(), owner, name)
	require.NoError(t, err)
	return org
}

// enableTwoFactor enrolls and confirms a second factor, returning the secret
// and the backup codes.
func (e *env) enableTwoFactor(t *testing.T, id uuid.UUID) (string, []string) {
	t.Helper()
	ctx := context.Background()
	enr, err := e.srv.TwoFactor().Setup(ctx, id, "user")
	require.NoError(t, err)
	require.NoError(t, e.srv.TwoFactor().Confirm(ctx, id, e.code(t, enr.Secret)))
	return enr.Secret, enr.BackupCodes
}

func (e *env) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateTOTPAt(secret, e.clock.Now())
	require.NoError(t, err)
	return code
}

// events returns the recorded audit events matching c, newest first.
func (e *env) events(t *testing.T, c audit.Criteria) []audit.Event {
	t.Helper()
	events, err := e.trail.Find(context.Background(), c)
	require.NoError(t, err)
	return events
}
