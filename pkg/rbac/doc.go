// Package rbac decides whether the current session satisfies a role requirement.
//
// Two kinds of roles exist. Global roles (SUPER_ADMIN, ADMIN, SUPPORT) belong to
// the identity. Organization roles (OWNER, ADMIN, MEMBER, VIEWER) belong to the
// single active membership. A Requirement lists acceptable roles of either kind:
//
//	rbac.Evaluate(session, rbac.Requirement{
//	    Roles:    []auth.GlobalRole{auth.RoleAdmin, auth.RoleSuperAdmin},
//	    OrgRoles: []auth.OrgRole{auth.OrgRoleOwner},
//	})
//
// Any listed role of a kind satisfies that kind; when both kinds are listed
// both must be satisfied. An empty Requirement passes for any authenticated
// session. Anything other than an authenticated session fails.
//
// Evaluation never errors and never enforces; redirecting or rejecting is left
// to the caller.
//
// # Evaluator
//
// NewEvaluator binds the checks to a live source, typically *authstate.Machine.
// The source is re-read on every call.
//
//	ev := rbac.NewEvaluator(machine)
//	if ev.HasOrgRole(auth.OrgRoleOwner, auth.OrgRoleAdmin) { ... }
//
// # Permissions
//
// A Policy maps organization roles to dotted permission patterns with
// inheritance and wildcards ("members.*", "*"). Evaluator.Allows checks the
// active membership against it; DefaultPolicy ships a viewer < member < admin
// ladder with an all-powerful owner.
package rbac
