package rbac

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrymomot/accesskit/pkg/auth"
)

// MaxInheritanceDepth bounds how deep role inheritance may nest.
const MaxInheritanceDepth = 10

// Role lists the permissions an organization role holds directly and the
// roles it inherits from.
type Role struct {
	Permissions []string
	Inherits    []auth.OrgRole
}

// Policy maps organization roles to their effective permissions.
// It is immutable after construction and safe for concurrent use.
type Policy struct {
	effective map[auth.OrgRole][]string
}

// NewPolicy validates inheritance and precomputes each role's effective permissions.
func NewPolicy(roles map[auth.OrgRole]Role) (*Policy, error) {
	for name, role := range roles {
		for _, parent := range role.Inherits {
			if _, ok := roles[parent]; !ok {
				return nil, errors.Join(ErrUnknownRole, fmt.Errorf("%s inherits %s", name, parent))
			}
		}
	}
	for name := range roles {
		if err := checkInheritance(name, roles, []auth.OrgRole{name}); err != nil {
			return nil, err
		}
	}

	p := &Policy{effective: make(map[auth.OrgRole][]string, len(roles))}
	for name := range roles {
		perms := collect(name, roles, map[auth.OrgRole]bool{})
		slices.Sort(perms)
		p.effective[name] = slices.Compact(perms)
	}
	return p, nil
}

// MustPolicy is NewPolicy that panics on invalid input.
func MustPolicy(roles map[auth.OrgRole]Role) *Policy {
	p, err := NewPolicy(roles)
	if err != nil {
		panic(err)
	}
	return p
}

// DefaultPolicy is the built-in ladder: viewer reads, member contributes,
// admin manages members and settings, owner holds everything.
func DefaultPolicy() *Policy {
	return MustPolicy(map[auth.OrgRole]Role{
		auth.OrgRoleViewer: {
			Permissions: []string{"organization.read", "members.read"},
		},
		auth.OrgRoleMember: {
			Permissions: []string{"projects.*"},
			Inherits:    []auth.OrgRole{auth.OrgRoleViewer},
		},
		auth.OrgRoleAdmin: {
			Permissions: []string{"members.*", "organization.update"},
			Inherits:    []auth.OrgRole{auth.OrgRoleMember},
		},
		auth.OrgRoleOwner: {
			Permissions: []string{Wildcard},
		},
	})
}

// Grants reports whether role holds permission, directly or inherited.
// Unknown roles hold nothing.
func (p *Policy) Grants(role auth.OrgRole, permission string) bool {
	if p == nil {
		return false
	}
	return grants(p.effective[role], permission)
}

// Permissions returns a copy of role's effective permission patterns, sorted.
func (p *Policy) Permissions(role auth.OrgRole) []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.effective[role])
}

func collect(name auth.OrgRole, roles map[auth.OrgRole]Role, visited map[auth.OrgRole]bool) []string {
	if visited[name] {
		return nil
	}
	visited[name] = true

	role := roles[name]
	out := slices.Clone(role.Permissions)
	for _, parent := range role.Inherits {
		out = append(out, collect(parent, roles, visited)...)
	}
	return out
}

// checkInheritance walks the inheritance graph depth-first, failing on
// cycles and on chains longer than MaxInheritanceDepth.
func checkInheritance(name auth.OrgRole, roles map[auth.OrgRole]Role, path []auth.OrgRole) error {
	if len(path) > MaxInheritanceDepth+1 {
		return errors.Join(ErrInheritanceTooDeep,
			fmt.Errorf("depth exceeds %d at %s", MaxInheritanceDepth, name))
	}
	for _, parent := range roles[name].Inherits {
		if slices.Contains(path, parent) {
			return errors.Join(ErrCircularInheritance,
				fmt.Errorf("circular inheritance: %s -> %s", name, parent))
		}
		if err := checkInheritance(parent, roles, append(slices.Clone(path), parent)); err != nil {
			return err
		}
	}
	return nil
}
