package auth

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// GlobalRole is an application-wide role attached to an identity.
type GlobalRole string

const (
	RoleSuperAdmin GlobalRole = "SUPER_ADMIN"
	RoleAdmin      GlobalRole = "ADMIN"
	RoleSupport    GlobalRole = "SUPPORT"
)

// OrgRole is a role scoped to exactly one organization membership.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "OWNER"
	OrgRoleAdmin  OrgRole = "ADMIN"
	OrgRoleMember OrgRole = "MEMBER"
	OrgRoleViewer OrgRole = "VIEWER"
)

// Identity is the authenticated principal as confirmed by the server.
// Values handed out by the state machine are copies; mutate nothing in place.
type Identity struct {
	ID            uuid.UUID    `json:"id"`
	Email         string       `json:"email"`
	EmailVerified bool         `json:"email_verified"`
	CreatedAt     time.Time    `json:"created_at"`
	Roles         []GlobalRole `json:"roles,omitempty"`
}

// HasRole reports whether the identity carries the given global role.
func (i *Identity) HasRole(role GlobalRole) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Roles, role)
}

// Clone returns a deep copy of the identity.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Roles = slices.Clone(i.Roles)
	return &c
}

// Organization is the membership currently selected for the identity.
type Organization struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
	Role OrgRole   `json:"role"`
}

// Clone returns a copy of the membership.
func (o *Organization) Clone() *Organization {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// Invite is the public view of an organization invitation.
type Invite struct {
	ID               uuid.UUID `json:"id"`
	OrganizationID   uuid.UUID `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	InviterName      string    `json:"inviter_name"`
	InviterEmail     string    `json:"inviter_email"`
	Role             OrgRole   `json:"role"`
	Email            string    `json:"email"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Clone returns a copy of the invite.
func (i *Invite) Clone() *Invite {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// IsExpired reports whether the invite expiry has passed at the given moment.
func (i *Invite) IsExpired(now time.Time) bool {
	return i != nil && !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Registration holds the fields submitted when creating an account.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}
