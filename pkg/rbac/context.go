package rbac

import (
	"context"

	"github.com/dmitrymomot/accesskit/pkg/authstate"
)

// CanFromContext evaluates req against the session machine installed in ctx.
// It returns false when ctx carries no machine.
func CanFromContext(ctx context.Context, req Requirement) bool {
	m, ok := authstate.FromContext(ctx)
	if !ok {
		return false
	}
	return Evaluate(m.Current(), req)
}

// AllowsFromContext checks permission for the active membership of the
// machine in ctx using DefaultPolicy.
func AllowsFromContext(ctx context.Context, permission string) bool {
	m, ok := authstate.FromContext(ctx)
	if !ok {
		return false
	}
	return NewEvaluator(m).Allows(permission)
}
