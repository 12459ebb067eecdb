package twofactor

import (
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload" // Load .env file automatically

	"github.com/veilauth/twofactor/pkg/otp"
)

// Config holds the deployment-wide settings of the subsystem.
type Config struct {
	// Issuer is the service name shown in authenticator apps.
	Issuer string `env:"TWOFACTOR_ISSUER,required"`

	// EncryptionKey is the base64-encoded 32-byte application key under
	// which all credential material is encrypted at rest.
	EncryptionKey string `env:"TWOFACTOR_ENCRYPTION_KEY,required"`

	// MaxAttempts caps failed verifications per account within AttemptWindow.
	MaxAttempts int `env:"TWOFACTOR_MAX_ATTEMPTS" envDefault:"5"`

	// AttemptWindow is the rolling window failed attempts are counted over.
	AttemptWindow time.Duration `env:"TWOFACTOR_ATTEMPT_WINDOW" envDefault:"15m"`

	// OTP carries the code parameters (algorithm, digits, period, tolerance).
	OTP otp.Config
}

// LoadConfig reads the configuration from the environment. No process-wide
// caching: the caller constructs the Service once and passes it around.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return otp.ErrMissingIssuer
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.AttemptWindow <= 0 {
		return ErrInvalidAttemptWindow
	}
	return c.OTP.GetDefaults().Validate()
}
