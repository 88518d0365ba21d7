// Package redis connects to Redis with go-redis/v9.
//
// Connect retries the initial ping so services can start before Redis is
// ready; Healthcheck wraps PING for readiness probes. The returned client is
// what ratelimiter.NewRedisStore and twofactor.NewRedisStore expect:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	limits := ratelimiter.NewRedisStore(client, "2fa:")
package redis
