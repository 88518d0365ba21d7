package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config bounds consecutive failures per key.
type Config struct {
	MaxAttempts int           // failures allowed before the key is locked
	Lockout     time.Duration // lock duration, counted from the last failure
}

func (c Config) validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.Lockout <= 0 {
		return fmt.Errorf("%w: lockout must be positive, got %v", ErrInvalidConfig, c.Lockout)
	}
	return nil
}

// Result describes the state of one key.
type Result struct {
	Limit     int
	Remaining int       // failures left before lockout
	ResetAt   time.Time // when the counter expires; zero if nothing recorded
}

// Allowed reports whether another attempt may be made.
func (r *Result) Allowed() bool {
	return r.Remaining > 0
}

// RetryAfter is how long a locked key has to wait, measured from now.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed() || r.ResetAt.IsZero() {
		return 0
	}
	return max(r.ResetAt.Sub(now), 0)
}

// Limiter locks a key after MaxAttempts consecutive failures. Callers reserve
// an attempt before verifying and reset the key on success:
//
//	if _, err := l.Attempt(ctx, key); err != nil { ... }
//	if verify() { l.Reset(ctx, key) }
type Limiter struct {
	store  Store
	config Config
}

// New creates a limiter over store.
func New(store Store, config Config) (*Limiter, error) {
	if store == nil {
		return nil, errors.Join(ErrInvalidConfig, ErrStoreUnavailable)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Limiter{store: store, config: config}, nil
}

// Check reports the current state of key without recording anything.
func (l *Limiter) Check(ctx context.Context, key string) (*Result, error) {
	count, resetAt, err := l.store.Count(ctx, key)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return l.result(count, resetAt), nil
}

// Attempt reserves one attempt for key before it is verified. At most
// MaxAttempts callers are admitted between resets, however many run at once.
// Attempts made while locked are counted too and restart the lockout; they
// return ErrLimitExceeded along with the result.
func (l *Limiter) Attempt(ctx context.Context, key string) (*Result, error) {
	count, resetAt, err := l.store.Increment(ctx, key, l.config.Lockout)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	res := l.result(count, resetAt)
	if count > l.config.MaxAttempts {
		return res, ErrLimitExceeded
	}
	return res, nil
}

// Reset clears key, typically after a successful attempt.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.Reset(ctx, key); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (l *Limiter) result(count int, resetAt time.Time) *Result {
	return &Result{
		Limit:     l.config.MaxAttempts,
		Remaining: max(l.config.MaxAttempts-count, 0),
		ResetAt:   resetAt,
	}
}
