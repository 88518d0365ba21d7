package rbac_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/rbac"
)

func TestMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		permission, pattern string
		want                bool
	}{
		{"members.invite", "members.invite", true},
		{"members.invite", "members.*", true},
		{"members.roles.update", "members.*", true},
		{"members.invite", "*", true},
		{"members", "members.*", false},
		{"membership.read", "members.*", false},
		{"billing.read", "members.*", false},
		{"members.invite", "members.remove", false},
	}

	for _, tt := range tests {
		t.Run(tt.permission+"~"+tt.pattern, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, rbac.Matches(tt.permission, tt.pattern))
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	p := rbac.DefaultPolicy()

	tests := []struct {
		role       auth.OrgRole
		permission string
		want       bool
	}{
		{auth.OrgRoleViewer, "organization.read", true},
		{auth.OrgRoleViewer, "projects.create", false},
		{auth.OrgRoleMember, "organization.read", true},
		{auth.OrgRoleMember, "projects.create", true},
		{auth.OrgRoleMember, "members.invite", false},
		{auth.OrgRoleAdmin, "members.invite", true},
		{auth.OrgRoleAdmin, "organization.update", true},
		{auth.OrgRoleAdmin, "organization.delete", false},
		{auth.OrgRoleOwner, "organization.delete", true},
		{auth.OrgRole("GUEST"), "organization.read", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.role, tt.permission), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.Grants(tt.role, tt.permission))
		})
	}

	assert.Equal(t, []string{"members.read", "organization.read", "projects.*"}, p.Permissions(auth.OrgRoleMember))
}

func TestNewPolicy_Validation(t *testing.T) {
	t.Parallel()

	t.Run("unknown parent", func(t *testing.T) {
		t.Parallel()
		_, err := rbac.NewPolicy(map[auth.OrgRole]rbac.Role{
			auth.OrgRoleAdmin: {Inherits: []auth.OrgRole{auth.OrgRoleMember}},
		})
		assert.ErrorIs(t, err, rbac.ErrUnknownRole)
	})

	t.Run("cycle", func(t *testing.T) {
		t.Parallel()
		_, err := rbac.NewPolicy(map[auth.OrgRole]rbac.Role{
			auth.OrgRoleAdmin:  {Inherits: []auth.OrgRole{auth.OrgRoleMember}},
			auth.OrgRoleMember: {Inherits: []auth.OrgRole{auth.OrgRoleAdmin}},
		})
		assert.ErrorIs(t, err, rbac.ErrCircularInheritance)
	})

	t.Run("self inheritance", func(t *testing.T) {
		t.Parallel()
		_, err := rbac.NewPolicy(map[auth.OrgRole]rbac.Role{
			auth.OrgRoleAdmin: {Inherits: []auth.OrgRole{auth.OrgRoleAdmin}},
		})
		assert.ErrorIs(t, err, rbac.ErrCircularInheritance)
	})

	t.Run("too deep", func(t *testing.T) {
		t.Parallel()
		roles := map[auth.OrgRole]rbac.Role{}
		for i := 0; i <= rbac.MaxInheritanceDepth+1; i++ {
			r := rbac.Role{Permissions: []string{fmt.Sprintf("p%d", i)}}
			if i > 0 {
				r.Inherits = []auth.OrgRole{auth.OrgRole(fmt.Sprintf("r%d", i-1))}
			}
			roles[auth.OrgRole(fmt.Sprintf("r%d", i))] = r
		}
		_, err := rbac.NewPolicy(roles)
		assert.ErrorIs(t, err, rbac.ErrInheritanceTooDeep)
	})

	t.Run("diamond is fine", func(t *testing.T) {
		t.Parallel()
		p, err := rbac.NewPolicy(map[auth.OrgRole]rbac.Role{
			"base":  {Permissions: []string{"a"}},
			"left":  {Permissions: []string{"b"}, Inherits: []auth.OrgRole{"base"}},
			"right": {Permissions: []string{"c"}, Inherits: []auth.OrgRole{"base"}},
			"top":   {Inherits: []auth.OrgRole{"left", "right"}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, p.Permissions("top"))
	})

	t.Run("MustPolicy panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			rbac.MustPolicy(map[auth.OrgRole]rbac.Role{"x": {Inherits: []auth.OrgRole{"y"}}})
		})
	})
}
