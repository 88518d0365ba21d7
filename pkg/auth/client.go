package auth

import (
	"context"

	"github.com/google/uuid"
)

// Client is the server collaborator consumed by the access core.
// Implementations report domain failures with the sentinels from errors.go
// and wrap transport failures with Transport.
type Client interface {
	// CurrentSession confirms the session held by the server.
	// It returns nil, nil when nobody is signed in.
	CurrentSession(ctx context.Context) (*SessionInfo, error)

	Login(ctx context.Context, email, password string) (LoginResponse, error)
	VerifyTwoFactor(ctx context.Context, code, pendingToken string) (SessionInfo, error)
	Register(ctx context.Context, data Registration) (RegisterResponse, error)
	Logout(ctx context.Context) error

	// RefreshSession extends the current server session.
	RefreshSession(ctx context.Context) error

	GetInvite(ctx context.Context, token string) (InviteResponse, error)
	AcceptInvite(ctx context.Context, token string) (AcceptInviteResponse, error)
	SwitchOrganization(ctx context.Context, orgID uuid.UUID) (*Organization, error)
}

// LoginResponse carries either a session or a second-factor challenge.
type LoginResponse struct {
	Session           *SessionInfo
	RequiresTwoFactor bool
	PendingToken      string
}

// Valid reports whether exactly one of the two outcomes is present.
func (r LoginResponse) Valid() bool {
	if r.RequiresTwoFactor {
		return r.Session == nil && r.PendingToken != ""
	}
	return r.Session != nil && r.Session.Identity != nil
}

// LoginResult is what the state machine reports back to the caller.
type LoginResult struct {
	Session           Session
	RequiresTwoFactor bool
	PendingToken      string
}

// RegisterResponse carries either a session or a verification-required marker.
type RegisterResponse struct {
	Session              *SessionInfo
	VerificationRequired bool
}

// RegisterResult surfaces which registration branch was taken.
type RegisterResult struct {
	Authenticated        bool
	VerificationRequired bool
	Session              Session
}

// InviteResponse is the getInvite payload: {success, invite, status, error}.
type InviteResponse struct {
	Success bool
	Invite  *Invite
	Status  string
	Error   string
}

// AcceptInviteResponse is the acceptInvite payload: {success, organization, error}.
type AcceptInviteResponse struct {
	Success      bool
	Organization *Organization
	Error        string
}
