package ratelimiter_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accesskit/pkg/ratelimiter"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	client := redisClient(t)
	store := ratelimiter.NewRedisStore(client, "test:ratelimit:")
	ctx := context.Background()
	key := uuid.NewString()

	count, resetAt, err := store.Count(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, resetAt.IsZero())

	for i := 1; i <= 3; i++ {
		count, resetAt, err = store.Increment(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.WithinDuration(t, time.Now().Add(time.Minute), resetAt, 2*time.Second)
	}

	count, resetAt, err = store.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.False(t, resetAt.IsZero())

	require.NoError(t, store.Reset(ctx, key))
	count, _, err = store.Count(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, count)
}
