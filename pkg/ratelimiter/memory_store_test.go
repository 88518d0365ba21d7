package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accesskit/pkg/ratelimiter"
)

func TestMemoryStore_WindowSlidesOnIncrement(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := ratelimiter.NewMemoryStore(ratelimiter.WithClock(clock.Now), ratelimiter.WithCleanupInterval(0))
	defer store.Close()
	ctx := context.Background()

	count, resetAt, err := store.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, clock.Now().Add(time.Minute), resetAt)

	clock.Advance(50 * time.Second)
	count, resetAt, err = store.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, clock.Now().Add(time.Minute), resetAt)

	clock.Advance(59 * time.Second)
	count, _, err = store.Count(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	clock.Advance(time.Second)
	count, resetAt, err = store.Count(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, resetAt.IsZero())
}

func TestMemoryStore_Sweeper(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(5 * time.Millisecond))
	defer store.Close()
	ctx := context.Background()

	_, _, err := store.Increment(ctx, "k", time.Millisecond)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		count, _, err := store.Count(ctx, "k")
		return err == nil && count == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()
	assert.NotPanics(t, func() {
		store.Close()
		store.Close()
	})
}
