package accounts

import "errors"

var (
	ErrIdentityNotFound = errors.New("accounts.identity_not_found")
	ErrAlreadyMember    = errors.New("accounts.already_member")
	ErrInvalidRole      = errors.New("accounts.invalid_role")
	ErrEmptyName        = errors.New("accounts.empty_name")
)

// Curated texts for the {success, error} invite payloads.
const (
	msgInviteWrongEmail = "This invitation was sent to a different email address."
	msgSignInRequired   = "You must be logged in to accept this invitation"
)
