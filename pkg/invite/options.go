package invite

import (
	"log/slog"
	"time"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}
