package authstate

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/accesskit/pkg/auth"
)

// Option configures a Machine.
type Option func(*Machine)

// WithCache persists the last confirmed session between runs.
func WithCache(cache auth.SnapshotCache) Option {
	return func(m *Machine) {
		m.cache = cache
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}
