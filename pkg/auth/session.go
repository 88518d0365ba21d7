package auth

import "time"

// Status tags the active variant of a Session.
type Status string

const (
	StatusLoading          Status = "loading"
	StatusUnauthenticated  Status = "unauthenticated"
	StatusPendingTwoFactor Status = "pending_two_factor"
	StatusAuthenticated    Status = "authenticated"
)

// Name implements statemachine.State.
func (s Status) Name() string { return string(s) }

// Session is a tagged union over the four session states.
// Only the fields belonging to Status are populated:
//
//	loading            Identity (cached snapshot, unconfirmed, may be nil)
//	pending_two_factor PendingToken
//	authenticated      Identity, Organization (optional), ExpiresAt (optional)
type Session struct {
	Status       Status
	Identity     *Identity
	Organization *Organization
	ExpiresAt    time.Time
	PendingToken string
}

// LoadingSession is the initial state, optionally carrying a cached identity.
func LoadingSession(cached *Identity) Session {
	return Session{Status: StatusLoading, Identity: cached.Clone()}
}

// UnauthenticatedSession is the state with no identity.
func UnauthenticatedSession() Session {
	return Session{Status: StatusUnauthenticated}
}

// PendingSession is the password-verified state waiting for a second factor.
func PendingSession(pendingToken string) Session {
	return Session{Status: StatusPendingTwoFactor, PendingToken: pendingToken}
}

// AuthenticatedSession is a fully authenticated state.
// A zero expiresAt means the server did not report an explicit expiry.
func AuthenticatedSession(identity *Identity, org *Organization, expiresAt time.Time) Session {
	return Session{
		Status:       StatusAuthenticated,
		Identity:     identity.Clone(),
		Organization: org.Clone(),
		ExpiresAt:    expiresAt,
	}
}

// IsAuthenticated reports whether the session is in the authenticated state with an identity.
func (s Session) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.Identity != nil
}

// HasExpiry reports whether the server supplied an explicit expiry.
func (s Session) HasExpiry() bool {
	return !s.ExpiresAt.IsZero()
}

// Clone returns a deep copy so callers cannot reach into a shared snapshot.
func (s Session) Clone() Session {
	s.Identity = s.Identity.Clone()
	s.Organization = s.Organization.Clone()
	return s
}

// SessionInfo is the server's description of an authenticated session.
type SessionInfo struct {
	Identity     *Identity
	Organization *Organization
	ExpiresAt    time.Time
}

// Session converts the server payload into an authenticated session value.
func (i SessionInfo) Session() Session {
	return AuthenticatedSession(i.Identity, i.Organization, i.ExpiresAt)
}

// SnapshotCache persists the last confirmed session between process runs.
// The machine adopts the cached value synchronously at construction and
// overwrites it after every transition.
type SnapshotCache interface {
	Load() (*SessionInfo, bool)
	Save(info *SessionInfo)
	Clear()
}
