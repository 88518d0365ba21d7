// Package ratelimiter counts consecutive attempts per key and locks the key
// once MaxAttempts is used up. The lock lasts Lockout from the last recorded
// attempt. Attempt reserves a slot atomically before the guarded check runs;
// a successful check should Reset the key.
//
// Two stores are provided: MemoryStore for single-process use and tests, and
// RedisStore (go-redis) for deployments with more than one instance.
//
//	limiter, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//	    MaxAttempts: 5,
//	    Lockout:     15 * time.Minute,
//	})
package ratelimiter
