package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/logger"
)

// Trail records audit events. A nil *Trail records nothing, so callers can
// hold one unconditionally.
type Trail struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Trail)

func WithClock(now func() time.Time) Option {
	return func(t *Trail) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets where store failures are reported.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trail) {
		if l != nil {
			t.logger = l
		}
	}
}

// New panics on a nil store: an audit trail that drops events silently is a
// wiring bug.
func New(store Store, opts ...Option) *Trail {
	if store == nil {
		panic("audit: store cannot be nil")
	}
	t := &Trail{store: store, now: time.Now, logger: logger.Discard()}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(logger.Component("audit"))
	return t
}

// Success records a completed action.
func (t *Trail) Success(ctx context.Context, action Action, opts ...EventOption) {
	t.record(ctx, action, ResultSuccess, "", opts)
}

// Failure records a rejected action. Only auth.Code(err) is kept.
func (t *Trail) Failure(ctx context.Context, action Action, err error, opts ...EventOption) {
	t.record(ctx, action, ResultFailure, auth.Code(err), opts)
}

// Find queries the underlying store.
func (t *Trail) Find(ctx context.Context, c Criteria) ([]Event, error) {
	if t == nil {
		return nil, nil
	}
	return t.store.Query(ctx, c)
}

func (t *Trail) record(ctx context.Context, action Action, result Result, reason string, opts []EventOption) {
	if t == nil {
		return
	}
	if action == "" {
		t.logger.ErrorContext(ctx, "audit event dropped", logger.Error(ErrEmptyAction))
		return
	}

	e := Event{
		ID:        uuid.New(),
		Action:    action,
		Result:    result,
		Reason:    reason,
		CreatedAt: t.now(),
	}
	for _, opt := range opts {
		opt(&e)
	}

	// Audit failures never fail the audited operation.
	if err := t.store.Store(ctx, e); err != nil {
		t.logger.ErrorContext(ctx, "audit store failed",
			logger.Error(err),
			slog.String("action", string(action)),
		)
	}
}
