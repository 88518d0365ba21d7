package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/accesskit/pkg/config"
	"github.com/dmitrymomot/accesskit/pkg/pg"
	"github.com/dmitrymomot/accesskit/pkg/ratelimiter"
	"github.com/dmitrymomot/accesskit/pkg/redis"
	"github.com/dmitrymomot/accesskit/pkg/twofactor"
)

type backend struct {
	twoFactor twofactor.Store
	options   []twofactor.Option
}

// openStore builds the second-factor store named by kind. Redis also backs
// the attempt limiter so lockouts survive restarts and span instances.
func openStore(ctx context.Context, log *slog.Logger, kind string) (backend, func(), error) {
	switch kind {
	case "", "memory":
		return backend{twoFactor: twofactor.NewMemoryStore()}, func() {}, nil

	case "redis":
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return backend{}, nil, err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return backend{}, nil, err
		}
		if err := redis.Healthcheck(client)(ctx); err != nil {
			_ = client.Close()
			return backend{}, nil, err
		}
		log.InfoContext(ctx, "second factor stored in redis")
		return backend{
			twoFactor: twofactor.NewRedisStore(client, "accesskit:2fa:"),
			options: []twofactor.Option{
				twofactor.WithLimiterStore(ratelimiter.NewRedisStore(client, "accesskit:attempts:")),
			},
		}, func() { _ = client.Close() }, nil

	case "postgres":
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return backend{}, nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return backend{}, nil, err
		}
		if err := pg.Healthcheck(pool)(ctx); err != nil {
			pool.Close()
			return backend{}, nil, err
		}
		if err := pg.Migrate(ctx, pool, twofactor.Migrations, cfg, log); err != nil {
			pool.Close()
			return backend{}, nil, err
		}
		log.InfoContext(ctx, "second factor stored in postgres")
		return backend{twoFactor: twofactor.NewPostgresStore(pool)}, pool.Close, nil
	}
	return backend{}, nil, fmt.Errorf("unknown TWO_FACTOR_STORE %q", kind)
}
