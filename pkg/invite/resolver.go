package invite

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/logger"
)

// Client is the part of auth.Client the resolver calls.
type Client interface {
	GetInvite(ctx context.Context, token string) (auth.InviteResponse, error)
	AcceptInvite(ctx context.Context, token string) (auth.AcceptInviteResponse, error)
}

// SessionSource gates Accept; *authstate.Machine satisfies it.
type SessionSource interface {
	Current() auth.Session
}

// State is a snapshot of the resolver.
type State struct {
	Status    Status
	Invite    *auth.Invite
	Error     string // user-facing, never raw error text
	Accepting bool
	Accepted  *auth.Organization // set once Accept succeeded
}

// Resolver tracks one invitation token from fetch to acceptance.
type Resolver struct {
	token    string
	client   Client
	sessions SessionSource
	now      func() time.Time
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	loaded     bool
	generation uint64 // bumped by every fetch and by Close
	closed     bool
}

// New creates a resolver in the loading state. Nothing is fetched until Load.
func New(token string, client Client, sessions SessionSource, opts ...Option) *Resolver {
	r := &Resolver{
		token:    strings.TrimSpace(token),
		client:   client,
		sessions: sessions,
		now:      time.Now,
		logger:   logger.Discard(),
		state:    State{Status: StatusLoading},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("invite"))
	return r
}

// Token returns the invitation token so callers can carry it through a
// login round trip.
func (r *Resolver) Token() string {
	return r.token
}

// Load fetches the invitation once. Later calls return the current state;
// use Retry to fetch again.
func (r *Resolver) Load(ctx context.Context) State {
	r.mu.Lock()
	if r.loaded || r.closed {
		r.mu.Unlock()
		return r.State()
	}
	r.loaded = true
	r.mu.Unlock()
	return r.fetch(ctx)
}

// Retry fetches the invitation again, leaving any terminal status.
func (r *Resolver) Retry(ctx context.Context) State {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return r.State()
	}
	r.loaded = true
	r.mu.Unlock()
	return r.fetch(ctx)
}

func (r *Resolver) fetch(ctx context.Context) State {
	if r.token == "" {
		r.set(State{Status: StatusInvalid, Error: auth.Message(auth.ErrEmptyInviteToken)})
		return r.State()
	}

	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.state = State{Status: StatusLoading}
	r.mu.Unlock()

	resp, err := r.client.GetInvite(ctx, r.token)

	var next State
	switch {
	case err != nil:
		r.logger.WarnContext(ctx, "fetch invite failed", logger.Error(err))
		next = State{Status: StatusInvalid, Error: auth.Message(auth.Transport(err))}
	case resp.Success && resp.Invite != nil:
		next = State{Status: StatusValid, Invite: resp.Invite.Clone()}
	case resp.Success:
		r.logger.WarnContext(ctx, "invite response without payload")
		next = State{Status: StatusInvalid, Error: auth.Message(auth.ErrInviteInvalid)}
	default:
		status := ParseStatus(resp.Status)
		next = State{Status: status, Error: r.message(resp.Error, status.Err())}
	}

	r.mu.Lock()
	if gen == r.generation && !r.closed {
		r.state = next
	}
	r.mu.Unlock()
	return r.State()
}

// State returns the current snapshot. A valid invite whose expiry has passed
// reports expired.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	s.Invite = s.Invite.Clone()
	s.Accepted = s.Accepted.Clone()
	if s.Status == StatusValid && s.Invite.IsExpired(r.now()) {
		s.Status = StatusExpired
		s.Error = auth.Message(auth.ErrInviteExpired)
	}
	return s
}

// Accept joins the organization behind the invitation. It requires an
// authenticated session and refuses to run twice concurrently. On failure
// the message is stored in State and no organization is returned.
func (r *Resolver) Accept(ctx context.Context) (*auth.Organization, error) {
	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		return nil, ErrClosed
	case r.state.Accepting:
		r.mu.Unlock()
		return nil, ErrAcceptInFlight
	}
	if !r.sessions.Current().IsAuthenticated() {
		r.state.Error = msgNotAuthenticated
		r.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	if r.token == "" {
		r.state.Error = auth.Message(auth.ErrEmptyInviteToken)
		r.mu.Unlock()
		return nil, auth.ErrEmptyInviteToken
	}
	r.state.Accepting = true
	r.state.Error = ""
	gen := r.generation
	r.mu.Unlock()

	resp, err := r.client.AcceptInvite(ctx, r.token)

	var (
		org     *auth.Organization
		message string
		result  error
	)
	switch {
	case err != nil:
		r.logger.WarnContext(ctx, "accept invite failed", logger.Error(err))
		result = auth.Transport(err)
		message = auth.Message(result)
	case !resp.Success:
		result = ErrAcceptFailed
		message = r.message(resp.Error, nil)
		if message == "" {
			message = msgAcceptFailed
		}
	case resp.Organization == nil:
		result = auth.ErrMalformedResponse
		message = msgAcceptFailed
	default:
		org = resp.Organization.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	r.state.Accepting = false
	if gen == r.generation {
		r.state.Error = message
		if org != nil {
			r.state.Accepted = org.Clone()
		}
	}
	if result != nil {
		return nil, result
	}
	r.logger.InfoContext(ctx, "invite accepted", logger.OrganizationID(org.ID))
	return org, nil
}

// Close tears the resolver down. In-flight results are discarded.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.generation++
}

func (r *Resolver) set(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.state = s
	}
}

// message prefers the server's text unless it is empty or echoes the token,
// falling back to the curated text for fallback.
func (r *Resolver) message(server string, fallback error) string {
	server = strings.TrimSpace(server)
	if server != "" && !strings.Contains(server, r.token) {
		return server
	}
	if fallback == nil {
		return ""
	}
	return auth.Message(fallback)
}
