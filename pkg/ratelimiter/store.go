package ratelimiter

import (
	"context"
	"time"
)

// Store keeps failure counters. A counter expires window after its last
// increment; implementations must make Increment atomic per key.
type Store interface {
	// Count returns the failures recorded for key and when the counter expires.
	// A missing key reports zero and a zero time.
	Count(ctx context.Context, key string) (count int, resetAt time.Time, err error)

	// Increment records one failure and restarts the expiry window.
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)

	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error
}
