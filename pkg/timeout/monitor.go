package timeout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/logger"
)

// Source is the session owner being watched; *authstate.Machine satisfies it.
type Source interface {
	Current() auth.Session
	Subscribe(fn func(auth.Session)) (unsubscribe func())
}

// Refresher extends the server session; *authstate.Machine satisfies it.
type Refresher interface {
	RefreshSession(ctx context.Context) error
}

// State is a point-in-time view of the monitor.
type State struct {
	Active    bool          // an authenticated session is being watched
	Remaining time.Duration // as of the last check
	Warning   bool
	Expired   bool
	Extending bool
}

// Monitor tracks the remaining lifetime of the authenticated session and
// fires a warning and a timeout, each at most once per session epoch. A new
// epoch starts when a session becomes authenticated or is extended.
type Monitor struct {
	source    Source
	refresher Refresher
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
	onWarning func(time.Duration)
	onTimeout func()
	ticks     <-chan time.Time

	mu           sync.Mutex
	active       bool
	sessionStart time.Time
	expiresAt    time.Time
	remaining    time.Duration
	warning      bool
	expired      bool
	warned       bool // epoch guard for onWarning
	timedOut     bool // epoch guard for onTimeout
	extending    bool
	generation   uint64 // bumped whenever the watched session ends or the monitor stops
	started      bool
	stopped      bool

	logCtx      context.Context // Start's context, for log records outside a call
	kick        chan struct{}
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New creates a monitor. Call Start to begin watching.
func New(source Source, refresher Refresher, cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		source:    source,
		refresher: refresher,
		cfg:       cfg.withDefaults(),
		logger:    logger.Discard(),
		now:       time.Now,
		kick:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("timeout"))
	return m
}

// Start subscribes to the source and runs periodic checks until ctx is done
// or Stop is called. Subsequent calls are no-ops.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.logCtx = ctx
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	unsubscribe := m.source.Subscribe(m.observe)
	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	m.observe(m.source.Current())

	ticks := m.ticks
	var ticker *time.Ticker
	if ticks == nil {
		ticker = time.NewTicker(m.cfg.CheckInterval)
		ticks = ticker.C
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				m.Check()
			case <-m.kick:
				m.Check()
			}
		}
	}()
}

// Stop ends periodic checks, unsubscribes and discards any in-flight extension.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.generation++
	m.resetLocked()
	cancel, unsubscribe := m.cancel, m.unsubscribe
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	m.wg.Wait()
}

// observe runs inside the source's delivery. It only updates bookkeeping;
// callbacks are left to the check loop so they can safely call back into the source.
func (m *Monitor) observe(s auth.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}

	if !s.IsAuthenticated() {
		if m.active {
			m.generation++
			m.resetLocked()
		}
		return
	}

	switch {
	case !m.active:
		m.active = true
		m.sessionStart = m.now()
		m.expiresAt = s.ExpiresAt
		m.newEpochLocked()
	case s.ExpiresAt.After(m.expiresAt):
		// Renewed elsewhere (or by Extend): the previous warning no longer applies.
		m.expiresAt = s.ExpiresAt
		m.newEpochLocked()
	default:
		m.expiresAt = s.ExpiresAt
	}

	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// Check recomputes the remaining time and fires callbacks that are due.
func (m *Monitor) Check() {
	m.mu.Lock()
	if !m.active || m.stopped {
		m.mu.Unlock()
		return
	}

	remaining := m.remainingLocked()
	m.remaining = remaining

	var fireWarning, fireTimeout bool
	switch {
	case remaining <= 0:
		m.expired = true
		m.warning = false
		if !m.timedOut {
			m.timedOut = true
			fireTimeout = true
		}
	case remaining <= m.cfg.WarnBefore && !m.warned:
		m.warning = true
		m.warned = true
		fireWarning = true
	}
	onWarning, onTimeout := m.onWarning, m.onTimeout
	ctx := m.logCtx
	m.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if fireWarning {
		m.logger.InfoContext(ctx, "session about to expire", logger.Duration(remaining))
		if onWarning != nil {
			onWarning(remaining)
		}
	}
	if fireTimeout {
		m.logger.InfoContext(ctx, "session timed out")
		if onTimeout != nil {
			onTimeout()
		}
	}
}

// Extend asks the refresher to renew the session. On success a new epoch
// begins; on failure the warning and expiry flags are left as they were.
func (m *Monitor) Extend(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case !m.active || m.stopped:
		m.mu.Unlock()
		return ErrInactive
	case m.extending:
		m.mu.Unlock()
		return ErrExtendInFlight
	}
	m.extending = true
	generation := m.generation
	m.mu.Unlock()

	err := m.refresher.RefreshSession(ctx)

	m.mu.Lock()
	if m.generation != generation {
		// Stopped or the session ended while the refresh was in flight.
		m.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrInactive
	}
	m.extending = false
	if err != nil {
		m.mu.Unlock()
		m.logger.WarnContext(ctx, "session extension failed", logger.Error(err))
		return err
	}

	m.sessionStart = m.now()
	if s := m.source.Current(); s.IsAuthenticated() {
		m.expiresAt = s.ExpiresAt
	}
	m.newEpochLocked()
	m.mu.Unlock()

	m.Check()
	return nil
}

// State returns the monitor's current view.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Active:    m.active,
		Remaining: m.remaining,
		Warning:   m.warning,
		Expired:   m.expired,
		Extending: m.extending,
	}
}

// remainingLocked prefers the server-reported expiry and falls back to the
// configured duration counted from the start of the epoch.
func (m *Monitor) remainingLocked() time.Duration {
	now := m.now()
	if !m.expiresAt.IsZero() {
		return m.expiresAt.Sub(now)
	}
	return m.cfg.SessionDuration - now.Sub(m.sessionStart)
}

func (m *Monitor) newEpochLocked() {
	m.warning = false
	m.expired = false
	m.warned = false
	m.timedOut = false
	m.remaining = m.remainingLocked()
}

func (m *Monitor) resetLocked() {
	m.active = false
	m.sessionStart = time.Time{}
	m.expiresAt = time.Time{}
	m.remaining = 0
	m.warning = false
	m.expired = false
	m.warned = false
	m.timedOut = false
	m.extending = false
}
