package authstate

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/accesskit/pkg/logger"
)

type contextKey struct{}

// WithMachine installs m in ctx.
func WithMachine(ctx context.Context, m *Machine) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the machine installed in ctx.
func FromContext(ctx context.Context) (*Machine, bool) {
	m, ok := ctx.Value(contextKey{}).(*Machine)
	return m, ok && m != nil
}

// MustFromContext returns the machine installed in ctx.
// Panics if there is none: components that need a session cannot run outside one.
func MustFromContext(ctx context.Context) *Machine {
	m, ok := FromContext(ctx)
	if !ok {
		panic("authstate: no session machine in context")
	}
	return m
}

// LoggerExtractor adds the signed-in identity and organization to log records.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		m, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		s := m.Current()
		if !s.IsAuthenticated() {
			return logger.SessionStatus(string(s.Status)), true
		}
		attrs := []slog.Attr{logger.IdentityID(s.Identity.ID)}
		if s.Organization != nil {
			attrs = append(attrs, logger.OrganizationID(s.Organization.ID))
		}
		return logger.Group("session", attrs...), true
	}
}
