package authstate

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/logger"
	"github.com/dmitrymomot/accesskit/pkg/statemachine"
	"github.com/dmitrymomot/accesskit/pkg/totp"
)

// Machine owns the session. It is the only writer of the session snapshot and
// notifies subscribers of every transition, in order, exactly once.
//
// Callbacks run synchronously, one transition at a time. A callback may call
// transition methods (Logout, Expire...): the transition is applied at once
// and delivered after every subscriber has seen the current one.
type Machine struct {
	client auth.Client
	cache  auth.SnapshotCache
	logger *slog.Logger
	now    func() time.Time

	fsm *fsm
	// applied is the state the transition table is in; snapshot is the last
	// state handed to subscribers and what Current returns.
	applied  atomic.Pointer[auth.Session]
	snapshot atomic.Pointer[auth.Session]

	// fireMu serializes transitions so they are queued in the order applied.
	fireMu sync.Mutex

	queueMu    sync.Mutex
	queue      []auth.Session
	delivering bool

	subsMu sync.Mutex
	subs   []subscriber
	nextID uint64

	verifying atomic.Bool
	initOnce  sync.Once
	initDone  chan struct{}
}

type subscriber struct {
	id uint64
	fn func(auth.Session)
}

// New creates a machine in the loading state. If the cache holds an unexpired
// snapshot its identity is adopted immediately, unconfirmed, until Init runs.
func New(client auth.Client, opts ...Option) *Machine {
	m := &Machine{
		client:   client,
		logger:   logger.Discard(),
		now:      time.Now,
		initDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("authstate"))

	var cached *auth.Identity
	if m.cache != nil {
		// An already-expired snapshot is not worth showing while Init runs.
		if info, ok := m.cache.Load(); ok && info != nil &&
			(info.ExpiresAt.IsZero() || m.now().Before(info.ExpiresAt)) {
			cached = info.Identity
		}
	}
	initial := auth.LoadingSession(cached)
	m.applied.Store(&initial)
	m.snapshot.Store(&initial)
	m.fsm = newFSM(m)

	return m
}

// Current returns a copy of the session snapshot. It never blocks. Inside a
// callback it is the session being delivered.
func (m *Machine) Current() auth.Session {
	return m.snapshot.Load().Clone()
}

func (m *Machine) latest() auth.Session {
	return m.applied.Load().Clone()
}

// Subscribe registers fn for every future transition. The returned function
// removes the subscription and may be called any number of times.
func (m *Machine) Subscribe(fn func(auth.Session)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	m.subsMu.Lock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			defer m.subsMu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Start runs Init in the background. The returned channel is closed once the
// session has been confirmed or rejected.
func (m *Machine) Start(ctx context.Context) <-chan struct{} {
	go m.Init(ctx)
	return m.initDone
}

// Init confirms the session with the server. Any failure leaves the machine
// unauthenticated. Only the first call does anything.
func (m *Machine) Init(ctx context.Context) {
	m.initOnce.Do(func() {
		defer close(m.initDone)

		info, err := m.client.CurrentSession(ctx)
		switch {
		case err != nil:
			m.logger.WarnContext(ctx, "session confirmation failed", logger.Error(err))
			m.settle(ctx, EventInitFailed, auth.UnauthenticatedSession())
		case info == nil || info.Identity == nil:
			m.settle(ctx, EventAnonymous, auth.UnauthenticatedSession())
		default:
			m.settle(ctx, EventRestored, info.Session())
		}
	})
}

// settle applies an init result unless the user already moved the machine on.
func (m *Machine) settle(ctx context.Context, ev Event, next auth.Session) {
	if err := m.fire(ctx, ev, change{next: next}); err != nil {
		m.logger.DebugContext(ctx, "discarding stale init result", logger.Event(string(ev)))
	}
}

// Login verifies credentials. The result is either a full session or a
// second-factor challenge, never both.
func (m *Machine) Login(ctx context.Context, email, password string) (auth.LoginResult, error) {
	if strings.TrimSpace(email) == "" {
		return auth.LoginResult{}, auth.ErrEmptyEmail
	}
	if password == "" {
		return auth.LoginResult{}, auth.ErrEmptyPassword
	}
	if !m.fsm.CanFire(ctx, EventLoggedIn, nil) {
		return auth.LoginResult{}, m.invalidTransition(EventLoggedIn)
	}

	resp, err := m.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return auth.LoginResult{}, err
	}
	if !resp.Valid() {
		return auth.LoginResult{}, auth.ErrMalformedResponse
	}

	if resp.RequiresTwoFactor {
		next := auth.PendingSession(resp.PendingToken)
		if err := m.fire(ctx, EventChallenged, change{next: next}); err != nil {
			return auth.LoginResult{}, err
		}
		return auth.LoginResult{Session: next, RequiresTwoFactor: true, PendingToken: resp.PendingToken}, nil
	}

	next := resp.Session.Session()
	if err := m.fire(ctx, EventLoggedIn, change{next: next}); err != nil {
		return auth.LoginResult{}, err
	}
	return auth.LoginResult{Session: next.Clone()}, nil
}

// VerifyTwoFactor completes a challenge with a TOTP or backup code.
// pendingToken must be the token currently held by the machine.
func (m *Machine) VerifyTwoFactor(ctx context.Context, code, pendingToken string) (auth.LoginResult, error) {
	if !m.verifying.CompareAndSwap(false, true) {
		return auth.LoginResult{}, auth.ErrVerificationInFlight
	}
	defer m.verifying.Store(false)

	cur := m.latest()
	if cur.Status != auth.StatusPendingTwoFactor || pendingToken == "" ||
		subtle.ConstantTimeCompare([]byte(cur.PendingToken), []byte(pendingToken)) != 1 {
		return auth.LoginResult{}, auth.ErrInvalidPendingToken
	}

	code = strings.TrimSpace(code)
	if !totp.IsCode(code) && !totp.IsRecoveryCode(code) {
		return auth.LoginResult{}, auth.ErrInvalidCodeFormat
	}

	info, err := m.client.VerifyTwoFactor(ctx, code, pendingToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPendingToken) || errors.Is(err, auth.ErrTwoFactorRateLimited) {
			// The server dropped the challenge; a new login is required.
			_ = m.fire(ctx, EventLoggedOut, change{next: auth.UnauthenticatedSession()})
		}
		return auth.LoginResult{}, err
	}
	if info.Identity == nil {
		return auth.LoginResult{}, auth.ErrMalformedResponse
	}

	next := info.Session()
	if err := m.fire(ctx, EventTwoFactorVerified, change{next: next, pendingToken: pendingToken}); err != nil {
		return auth.LoginResult{}, err
	}
	return auth.LoginResult{Session: next.Clone()}, nil
}

// Register creates an account. Depending on the server the user is signed in
// right away or must verify the email address first.
func (m *Machine) Register(ctx context.Context, data auth.Registration) (auth.RegisterResult, error) {
	data.Email = strings.TrimSpace(data.Email)
	if data.Email == "" {
		return auth.RegisterResult{}, auth.ErrEmptyEmail
	}
	if data.Password == "" {
		return auth.RegisterResult{}, auth.ErrEmptyPassword
	}
	if !m.fsm.CanFire(ctx, EventRegistered, nil) {
		return auth.RegisterResult{}, m.invalidTransition(EventRegistered)
	}

	resp, err := m.client.Register(ctx, data)
	if err != nil {
		return auth.RegisterResult{}, err
	}

	switch {
	case resp.Session != nil && resp.Session.Identity != nil:
		next := resp.Session.Session()
		if err := m.fire(ctx, EventRegistered, change{next: next}); err != nil {
			return auth.RegisterResult{}, err
		}
		return auth.RegisterResult{Authenticated: true, Session: next.Clone()}, nil
	case resp.VerificationRequired:
		return auth.RegisterResult{VerificationRequired: true, Session: m.Current()}, nil
	default:
		return auth.RegisterResult{}, auth.ErrMalformedResponse
	}
}

// Logout always ends unauthenticated. Server failures are logged, not returned.
func (m *Machine) Logout(ctx context.Context) {
	if err := m.client.Logout(ctx); err != nil {
		m.logger.WarnContext(ctx, "server logout failed", logger.Error(err))
	}
	if err := m.fire(ctx, EventLoggedOut, change{next: auth.UnauthenticatedSession()}); err != nil {
		m.logger.ErrorContext(ctx, "logout transition failed", logger.Error(err))
	}
}

// Expire ends an authenticated session locally. It is a no-op in any other state.
func (m *Machine) Expire(ctx context.Context) {
	if m.latest().Status != auth.StatusAuthenticated {
		return
	}
	if err := m.fire(ctx, EventExpired, change{next: auth.UnauthenticatedSession()}); err != nil {
		m.logger.DebugContext(ctx, "expire skipped", logger.Error(err))
		return
	}
	m.logger.InfoContext(ctx, "session expired")
}

// RefreshSession extends the server session and adopts the renewed expiry.
// If the server no longer knows the session the machine expires it.
func (m *Machine) RefreshSession(ctx context.Context) error {
	cur := m.latest()
	if cur.Status != auth.StatusAuthenticated {
		return m.invalidTransition(EventRefreshed)
	}

	if err := m.client.RefreshSession(ctx); err != nil {
		return err
	}

	info, err := m.client.CurrentSession(ctx)
	if err != nil {
		// Refreshed but unreadable: keep the identity and fall back to the configured duration.
		m.logger.WarnContext(ctx, "refreshed session could not be re-read", logger.Error(err))
		next := auth.AuthenticatedSession(cur.Identity, cur.Organization, time.Time{})
		return m.fire(ctx, EventRefreshed, change{next: next, identity: cur.Identity})
	}
	if info == nil || info.Identity == nil {
		_ = m.fire(ctx, EventExpired, change{next: auth.UnauthenticatedSession()})
		return auth.ErrUnauthorized
	}

	next := info.Session()
	if next.Organization == nil {
		next.Organization = cur.Organization.Clone()
	}
	return m.fire(ctx, EventRefreshed, change{next: next, identity: cur.Identity})
}

// SwitchOrganization makes orgID the active membership.
func (m *Machine) SwitchOrganization(ctx context.Context, orgID uuid.UUID) error {
	cur := m.latest()
	if cur.Status != auth.StatusAuthenticated {
		return m.invalidTransition(EventOrganizationChanged)
	}

	org, err := m.client.SwitchOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	if org == nil {
		return auth.ErrOrganizationNotFound
	}

	next := auth.AuthenticatedSession(cur.Identity, org, cur.ExpiresAt)
	if err := m.fire(ctx, EventOrganizationChanged, change{next: next, identity: cur.Identity}); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "organization switched", logger.OrganizationID(org.ID), logger.Role(string(org.Role)))
	return nil
}

// fire applies ev, queues the new session and delivers the queue unless
// another caller is already delivering it. A transition fired from a
// callback is therefore delivered by the caller that ran the callback.
func (m *Machine) fire(ctx context.Context, ev Event, c change) error {
	m.fireMu.Lock()
	from := m.fsm.Current()
	if _, err := m.fsm.Fire(ctx, ev, c); err != nil {
		m.fireMu.Unlock()
		if statemachine.IsNoTransitionAvailableError(err) || statemachine.IsTransitionRejectedError(err) {
			return errors.Join(auth.ErrInvalidTransition, err)
		}
		return err
	}
	m.queueMu.Lock()
	m.queue = append(m.queue, c.next.Clone())
	m.queueMu.Unlock()
	m.fireMu.Unlock()

	m.logger.DebugContext(ctx, "session transition",
		logger.Event(string(ev)),
		logger.Transition(string(from), string(c.next.Status)),
	)
	m.deliver()
	return nil
}

// deliver publishes queued sessions one by one. The snapshot only moves once
// all subscribers saw the previous session.
func (m *Machine) deliver() {
	m.queueMu.Lock()
	if m.delivering {
		m.queueMu.Unlock()
		return
	}
	m.delivering = true
	m.queueMu.Unlock()

	drained := false
	defer func() {
		if !drained {
			// A callback panicked; let the next transition resume delivery.
			m.queueMu.Lock()
			m.delivering = false
			m.queueMu.Unlock()
		}
	}()

	for {
		next, ok := m.dequeue()
		if !ok {
			drained = true
			return
		}
		m.snapshot.Store(&next)
		m.persist(next)
		m.notify(next)
	}
}

// dequeue pops the oldest queued session. An empty queue ends delivery in the
// same critical section, so nothing queued after it is left behind.
func (m *Machine) dequeue() (auth.Session, bool) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if len(m.queue) == 0 {
		m.delivering = false
		return auth.Session{}, false
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	return next, true
}

// publish is the action attached to every transition. It runs before the
// machine changes state, so a mismatched payload aborts the transition.
func (m *Machine) publish(_ context.Context, _, to auth.Status, ev Event, data any) error {
	c, ok := data.(change)
	if !ok || c.next.Status != to {
		return fmt.Errorf("event %s: payload does not describe state %s", ev, to)
	}
	next := c.next.Clone()
	m.applied.Store(&next)
	return nil
}

func (m *Machine) persist(s auth.Session) {
	if m.cache == nil {
		return
	}
	if s.IsAuthenticated() {
		m.cache.Save(&auth.SessionInfo{
			Identity:     s.Identity.Clone(),
			Organization: s.Organization.Clone(),
			ExpiresAt:    s.ExpiresAt,
		})
		return
	}
	m.cache.Clear()
}

func (m *Machine) notify(s auth.Session) {
	m.subsMu.Lock()
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(s.Clone())
	}
}

func (m *Machine) invalidTransition(ev Event) error {
	return fmt.Errorf("%w: %s not allowed in state %s", auth.ErrInvalidTransition, ev, m.fsm.Current())
}
