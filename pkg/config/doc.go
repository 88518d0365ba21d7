// Package config loads typed configuration from the environment.
//
// Every component of the access core declares its settings as a struct with
// `env` tags (pg.Config, redis.Config, twofactor.Config, timeout.Config and so
// on). Load parses such a struct with github.com/caarlos0/env/v11, runs its
// Validate method when it has one and caches the result per type:
//
//	if err := config.LoadEnv(".env.local", ".env"); err != nil && !os.IsNotExist(err) {
//		return err
//	}
//	var tf twofactor.Config
//	if err := config.Load(&tf); err != nil {
//		return err
//	}
//
// Values already present in the process environment always win over .env
// files. Failed loads are not cached. Tests call ResetCache after changing
// the environment.
package config
