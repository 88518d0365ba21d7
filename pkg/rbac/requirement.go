package rbac

import (
	"slices"

	"github.com/dmitrymomot/accesskit/pkg/auth"
)

// Requirement declares who may pass a check. Roles and OrgRoles are each
// satisfied by any one member; when both are set both must hold.
// An empty requirement only gates on being authenticated.
type Requirement struct {
	Roles    []auth.GlobalRole
	OrgRoles []auth.OrgRole
}

// RequireRole is shorthand for a requirement on global roles only.
func RequireRole(roles ...auth.GlobalRole) Requirement {
	return Requirement{Roles: roles}
}

// RequireOrgRole is shorthand for a requirement on the active membership only.
func RequireOrgRole(roles ...auth.OrgRole) Requirement {
	return Requirement{OrgRoles: roles}
}

// Evaluate reports whether session satisfies req. It has no side effects.
func Evaluate(session auth.Session, req Requirement) bool {
	if !session.IsAuthenticated() || session.Identity == nil {
		return false
	}

	if len(req.Roles) > 0 && !slices.ContainsFunc(req.Roles, session.Identity.HasRole) {
		return false
	}

	if len(req.OrgRoles) > 0 {
		org := session.Organization
		if org == nil || !slices.Contains(req.OrgRoles, org.Role) {
			return false
		}
	}

	return true
}
