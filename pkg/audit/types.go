package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Action names a security-relevant operation.
type Action string

const (
	ActionLogin           Action = "auth.login"
	ActionTwoFactor       Action = "auth.two_factor"
	ActionRegister        Action = "auth.register"
	ActionLogout          Action = "auth.logout"
	ActionSessionRefresh  Action = "auth.session_refresh"
	ActionSwitchOrg       Action = "org.switch"
	ActionInviteCreated   Action = "invite.created"
	ActionInviteAccepted  Action = "invite.accepted"
	ActionAccountState    Action = "account.state_changed"
	ActionMemberAdded     Action = "org.member_added"
	ActionOrganizationNew Action = "org.created"
)

// Event is one audit record. Reason carries an error code for failures,
// never raw error text, and Metadata never carries secrets.
type Event struct {
	ID             uuid.UUID         `json:"id"`
	Action         Action            `json:"action"`
	Result         Result            `json:"result"`
	IdentityID     uuid.UUID         `json:"identity_id,omitzero"`
	OrganizationID uuid.UUID         `json:"organization_id,omitzero"`
	Reason         string            `json:"reason,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// EventOption decorates an event before it is stored.
type EventOption func(*Event)

func WithIdentity(id uuid.UUID) EventOption {
	return func(e *Event) { e.IdentityID = id }
}

func WithOrganization(id uuid.UUID) EventOption {
	return func(e *Event) { e.OrganizationID = id }
}

// WithMetadata adds a key/value pair. Hash personal data with HashIdentifier first.
func WithMetadata(key, value string) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]string)
		}
		e.Metadata[key] = value
	}
}

// Criteria filters Query results. Zero fields match everything.
type Criteria struct {
	Action     Action
	Result     Result
	IdentityID uuid.UUID
	Since      time.Time
	Limit      int
}

func (c Criteria) matches(e Event) bool {
	switch {
	case c.Action != "" && e.Action != c.Action:
		return false
	case c.Result != "" && e.Result != c.Result:
		return false
	case c.IdentityID != uuid.Nil && e.IdentityID != c.IdentityID:
		return false
	case !c.Since.IsZero() && e.CreatedAt.Before(c.Since):
		return false
	}
	return true
}

// Store persists events.
type Store interface {
	Store(ctx context.Context, events ...Event) error
	Query(ctx context.Context, c Criteria) ([]Event, error)
}
