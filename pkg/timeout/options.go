package timeout

import (
	"log/slog"
	"time"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// OnWarning is called once per session epoch when the remaining time first
// drops to WarnBefore or below.
func OnWarning(fn func(remaining time.Duration)) Option {
	return func(m *Monitor) {
		m.onWarning = fn
	}
}

// OnTimeout is called once per session epoch when the remaining time reaches zero.
func OnTimeout(fn func()) Option {
	return func(m *Monitor) {
		m.onTimeout = fn
	}
}

// WithTicks drives periodic checks from ticks instead of a ticker built from
// CheckInterval.
func WithTicks(ticks <-chan time.Time) Option {
	return func(m *Monitor) {
		m.ticks = ticks
	}
}
