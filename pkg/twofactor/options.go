package twofactor

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/accesskit/pkg/ratelimiter"
)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now for code validation and challenge expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLimiterStore keeps failure counters in store, e.g. ratelimiter.RedisStore
// for lockouts shared between instances. The default is an in-process store.
func WithLimiterStore(store ratelimiter.Store) Option {
	return func(s *Service) {
		s.limiterStore = store
	}
}
