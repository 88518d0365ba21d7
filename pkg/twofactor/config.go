package twofactor

import (
	"fmt"
	"time"
)

// MinBackupCodes is the smallest backup code set a setup may issue.
const MinBackupCodes = 8

// Config is populated from the environment by pkg/config.
type Config struct {
	EncryptionKey string        `env:"TOTP_ENCRYPTION_KEY,required"` // base64, 32 bytes
	Issuer        string        `env:"TOTP_ISSUER" envDefault:"AccessKit"`
	MaxAttempts   int           `env:"TWO_FACTOR_MAX_ATTEMPTS" envDefault:"5"`
	Lockout       time.Duration `env:"TWO_FACTOR_LOCKOUT" envDefault:"15m"`
	ChallengeTTL  time.Duration `env:"TWO_FACTOR_CHALLENGE_TTL" envDefault:"5m"`
	BackupCodes   int           `env:"TWO_FACTOR_BACKUP_CODES" envDefault:"10"`
	QRSize        int           `env:"TWO_FACTOR_QR_SIZE" envDefault:"256"`
}

func (c Config) withDefaults() Config {
	if c.Issuer == "" {
		c.Issuer = "AccessKit"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.Lockout == 0 {
		c.Lockout = 15 * time.Minute
	}
	if c.ChallengeTTL == 0 {
		c.ChallengeTTL = 5 * time.Minute
	}
	if c.BackupCodes == 0 {
		c.BackupCodes = 10
	}
	if c.QRSize <= 0 {
		c.QRSize = 256
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.BackupCodes < MinBackupCodes:
		return fmt.Errorf("%w: at least %d backup codes required, got %d", ErrInvalidConfig, MinBackupCodes, c.BackupCodes)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be positive", ErrInvalidConfig)
	case c.Lockout < 0 || c.ChallengeTTL < 0:
		return fmt.Errorf("%w: durations must be positive", ErrInvalidConfig)
	}
	return nil
}
