package accounts

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds the backend policy knobs.
type Config struct {
	SessionTTL        time.Duration `env:"ACCOUNTS_SESSION_TTL" envDefault:"30m"`
	InviteTTL         time.Duration `env:"ACCOUNTS_INVITE_TTL" envDefault:"168h"`
	BcryptCost        int           `env:"ACCOUNTS_BCRYPT_COST" envDefault:"10"`
	MinPasswordLength int           `env:"ACCOUNTS_MIN_PASSWORD_LENGTH" envDefault:"8"`
	// RequireVerification makes Register return VerificationRequired
	// instead of signing the new account in.
	RequireVerification bool `env:"ACCOUNTS_REQUIRE_VERIFICATION" envDefault:"false"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		SessionTTL:        30 * time.Minute,
		InviteTTL:         7 * 24 * time.Hour,
		BcryptCost:        bcrypt.DefaultCost,
		MinPasswordLength: 8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.InviteTTL <= 0 {
		c.InviteTTL = d.InviteTTL
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		c.BcryptCost = d.BcryptCost
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = d.MinPasswordLength
	}
	return c
}
