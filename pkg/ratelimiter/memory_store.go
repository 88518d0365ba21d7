package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time

	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired counters are swept. Zero disables the sweeper.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates a store. Call Close to stop the sweeper.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		counters:        make(map[string]*counter),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}
	return ms
}

func (ms *MemoryStore) Count(_ context.Context, key string) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	c, ok := ms.live(key)
	if !ok {
		return 0, time.Time{}, nil
	}
	return c.count, c.resetAt, nil
}

func (ms *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	c, ok := ms.live(key)
	if !ok {
		c = &counter{}
		ms.counters[key] = c
	}
	c.count++
	c.resetAt = ms.now().Add(window)
	return c.count, c.resetAt, nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.counters, key)
	return nil
}

// live must be called with ms.mu held.
func (ms *MemoryStore) live(key string) (*counter, bool) {
	c, ok := ms.counters[key]
	if !ok {
		return nil, false
	}
	if !ms.now().Before(c.resetAt) {
		delete(ms.counters, key)
		return nil, false
	}
	return c, true
}

func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeExpired()
		case <-ms.stop:
			return
		}
	}
}

func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	for key, c := range ms.counters {
		if !now.Before(c.resetAt) {
			delete(ms.counters, key)
		}
	}
}

// Close stops the sweeper. Safe to call more than once.
func (ms *MemoryStore) Close() {
	ms.stopOnce.Do(func() { close(ms.stop) })
}
