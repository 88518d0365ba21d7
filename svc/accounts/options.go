package accounts

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/accesskit/pkg/audit"
	"github.com/dmitrymomot/accesskit/pkg/rbac"
)

// Option configures a Server.
type Option func(*Server)

// WithClock overrides time.Now for session and invite expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolicy replaces the role policy consulted for invite permissions.
func WithPolicy(p *rbac.Policy) Option {
	return func(s *Server) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithAudit records sign-in, membership and invite events to trail.
func WithAudit(trail *audit.Trail) Option {
	return func(s *Server) { s.audit = trail }
}
