package timeout

import "time"

// Config controls the sliding session timeout.
type Config struct {
	WarnBefore      time.Duration `env:"SESSION_WARN_BEFORE" envDefault:"5m"`
	CheckInterval   time.Duration `env:"SESSION_CHECK_INTERVAL" envDefault:"30s"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"1h"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		WarnBefore:      5 * time.Minute,
		CheckInterval:   30 * time.Second,
		SessionDuration: time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WarnBefore <= 0 {
		c.WarnBefore = d.WarnBefore
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = d.CheckInterval
	}
	if c.SessionDuration <= 0 {
		c.SessionDuration = d.SessionDuration
	}
	return c
}
