package rbac

import "github.com/dmitrymomot/accesskit/pkg/auth"

// Source provides the current session snapshot; *authstate.Machine satisfies it.
type Source interface {
	Current() auth.Session
}

// Evaluator answers permission questions against the live session.
// Every call re-reads the source, so results follow login, logout and
// organization switches without any invalidation.
type Evaluator struct {
	source Source
	policy *Policy
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithPolicy sets the permission policy consulted by Allows.
func WithPolicy(p *Policy) EvaluatorOption {
	return func(e *Evaluator) {
		e.policy = p
	}
}

// NewEvaluator creates an evaluator over source. Without WithPolicy it uses DefaultPolicy.
func NewEvaluator(source Source, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{source: source}
	for _, opt := range opts {
		opt(e)
	}
	if e.policy == nil {
		e.policy = DefaultPolicy()
	}
	return e
}

// Can reports whether the current session satisfies req.
func (e *Evaluator) Can(req Requirement) bool {
	return Evaluate(e.source.Current(), req)
}

// HasRole reports whether the signed-in identity carries the global role.
func (e *Evaluator) HasRole(role auth.GlobalRole) bool {
	return e.Can(RequireRole(role))
}

// HasOrgRole reports whether the active membership has one of roles.
func (e *Evaluator) HasOrgRole(roles ...auth.OrgRole) bool {
	if len(roles) == 0 {
		return false
	}
	return e.Can(RequireOrgRole(roles...))
}

// Allows reports whether the active membership's role grants permission
// under the evaluator's policy. No membership means no permissions.
func (e *Evaluator) Allows(permission string) bool {
	s := e.source.Current()
	if !s.IsAuthenticated() || s.Organization == nil {
		return false
	}
	return e.policy.Grants(s.Organization.Role, permission)
}
