package auth

import "errors"

// Validation errors: malformed input caught before any network call.
var (
	ErrEmptyEmail        = errors.New("auth.empty_email")
	ErrEmptyPassword     = errors.New("auth.empty_password")
	ErrInvalidCodeFormat = errors.New("auth.invalid_code_format")
	ErrEmptyInviteToken  = errors.New("auth.empty_invite_token")
	ErrInvalidEmail      = errors.New("auth.invalid_email")
	ErrWeakPassword      = errors.New("auth.weak_password")
)

// Authentication errors. Each one is distinct so callers can offer the right remediation.
var (
	ErrInvalidCredentials = errors.New("auth.invalid_credentials")
	ErrEmailNotVerified   = errors.New("auth.email_not_verified")
	ErrAccountLocked      = errors.New("auth.account_locked")
	ErrEmailAlreadyExists = errors.New("auth.email_already_exists")
)

// Second-factor errors.
var (
	ErrInvalidTwoFactorCode    = errors.New("auth.invalid_two_factor_code")
	ErrInvalidPendingToken     = errors.New("auth.invalid_pending_token")
	ErrTwoFactorRateLimited    = errors.New("auth.two_factor_rate_limited")
	ErrTwoFactorNotEnabled     = errors.New("auth.two_factor_not_enabled")
	ErrTwoFactorAlreadyEnabled = errors.New("auth.two_factor_already_enabled")
	ErrVerificationInFlight    = errors.New("auth.verification_in_flight")
)

// Token lifecycle errors for invitations.
var (
	ErrInviteInvalid = errors.New("auth.invite_invalid")
	ErrInviteExpired = errors.New("auth.invite_expired")
	ErrInviteUsed    = errors.New("auth.invite_already_used")
	ErrAlreadyMember = errors.New("auth.already_member")
)

// Authorization and state errors.
var (
	ErrUnauthorized         = errors.New("auth.unauthorized")
	ErrInvalidTransition    = errors.New("auth.invalid_transition")
	ErrMalformedResponse    = errors.New("auth.malformed_response")
	ErrOrganizationNotFound = errors.New("auth.organization_not_found")
)

// ErrNetwork marks transport failures (connection, timeout, unreadable response).
var ErrNetwork = errors.New("auth.network")

// Transport wraps a transport failure so it classifies as KindTransport.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrNetwork, err)
}

// Kind is the error taxonomy bucket.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindSecondFactor   Kind = "second_factor"
	KindAuthorization  Kind = "authorization"
	KindTokenLifecycle Kind = "token_lifecycle"
	KindTransport      Kind = "transport"
	KindInternal       Kind = "internal"
)

type classified struct {
	err     error
	kind    Kind
	message string
}

// Order matters: transport is checked first so a wrapped network failure
// never reports a domain message.
var taxonomy = []classified{
	{ErrNetwork, KindTransport, "Unable to reach the server. Please check your connection and try again."},

	{ErrEmptyEmail, KindValidation, "Email is required."},
	{ErrEmptyPassword, KindValidation, "Password is required."},
	{ErrInvalidCodeFormat, KindValidation, "Enter the 6-digit code from your authenticator app or a backup code."},
	{ErrEmptyInviteToken, KindValidation, "No invite token provided"},
	{ErrInvalidEmail, KindValidation, "Enter a valid email address."},
	{ErrWeakPassword, KindValidation, "Password is too short."},

	{ErrInvalidCredentials, KindAuthentication, "Invalid email or password."},
	{ErrEmailNotVerified, KindAuthentication, "Please verify your email address before signing in."},
	{ErrAccountLocked, KindAuthentication, "This account is locked. Contact support to restore access."},
	{ErrEmailAlreadyExists, KindValidation, "An account with this email already exists."},

	{ErrInvalidTwoFactorCode, KindSecondFactor, "Invalid verification code."},
	{ErrInvalidPendingToken, KindSecondFactor, "Your sign-in attempt has expired. Please sign in again."},
	{ErrTwoFactorRateLimited, KindSecondFactor, "Too many failed attempts. Please wait before trying again."},
	{ErrTwoFactorNotEnabled, KindSecondFactor, "Two-factor authentication is not enabled."},
	{ErrTwoFactorAlreadyEnabled, KindSecondFactor, "Two-factor authentication is already enabled."},
	{ErrVerificationInFlight, KindSecondFactor, "Verification is already in progress."},

	{ErrInviteInvalid, KindTokenLifecycle, "This invitation link is invalid."},
	{ErrInviteExpired, KindTokenLifecycle, "This invitation has expired."},
	{ErrInviteUsed, KindTokenLifecycle, "This invitation has already been used."},
	{ErrAlreadyMember, KindTokenLifecycle, "You are already a member of this organization."},

	{ErrUnauthorized, KindAuthorization, "You are not allowed to perform this action."},
	{ErrOrganizationNotFound, KindAuthorization, "Organization not found."},
}

const genericMessage = "Something went wrong. Please try again."

// KindOf classifies err into the error taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, c := range taxonomy {
		if errors.Is(err, c.err) {
			return c.kind
		}
	}
	return KindInternal
}

// Code returns the stable identifier of the sentinel err matches, such as
// "auth.invalid_credentials", or "internal". Safe to log and persist.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range taxonomy {
		if errors.Is(err, c.err) {
			return c.err.Error()
		}
	}
	return string(KindInternal)
}

// Message returns the curated user-facing text for err.
// Raw error text is never returned.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range taxonomy {
		if errors.Is(err, c.err) {
			return c.message
		}
	}
	return genericMessage
}
