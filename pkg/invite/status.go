package invite

import (
	"errors"

	"github.com/dmitrymomot/accesskit/pkg/auth"
)

// Status is the derived state of an invitation as seen by this resolver.
type Status string

const (
	StatusLoading       Status = "loading"
	StatusValid         Status = "valid"
	StatusExpired       Status = "expired"
	StatusInvalid       Status = "invalid"
	StatusAlreadyUsed   Status = "already_used"
	StatusAlreadyMember Status = "already_member"
)

// IsTerminal reports whether the status can only change through Retry.
func (s Status) IsTerminal() bool {
	return s != StatusLoading && s != ""
}

// Err returns the auth sentinel that matches a failed status, or nil.
func (s Status) Err() error {
	switch s {
	case StatusExpired:
		return auth.ErrInviteExpired
	case StatusAlreadyUsed:
		return auth.ErrInviteUsed
	case StatusAlreadyMember:
		return auth.ErrAlreadyMember
	case StatusInvalid:
		return auth.ErrInviteInvalid
	}
	return nil
}

// ParseStatus maps a server-reported failure status onto the terminal set.
// Anything unrecognised, including "valid" on a failed response, is invalid.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusExpired:
		return StatusExpired
	case StatusAlreadyUsed, "used":
		return StatusAlreadyUsed
	case StatusAlreadyMember, "member":
		return StatusAlreadyMember
	}
	return StatusInvalid
}

var (
	ErrNotAuthenticated = errors.New("invite.not_authenticated")
	ErrAcceptInFlight   = errors.New("invite.accept_in_flight")
	ErrAcceptFailed     = errors.New("invite.accept_failed")
	ErrClosed           = errors.New("invite.resolver_closed")
)

const (
	msgNotAuthenticated = "You must be logged in to accept this invitation"
	msgAcceptFailed     = "Failed to accept invitation. Please try again."
)
