package otp

import (
	"fmt"
	"time"
)

// Config captures the per-deployment code parameters. All verifications for a
// deployment must use the same configuration or previously issued codes stop
// matching.
type Config struct {
	Algorithm Algorithm `env:"TWOFACTOR_ALGORITHM" envDefault:"SHA1"` // HMAC hash for code computation
	Digits    int       `env:"TWOFACTOR_DIGITS" envDefault:"6"`       // Code length in decimal digits
	Period    int       `env:"TWOFACTOR_PERIOD" envDefault:"30"`      // Time-step size in seconds
	Tolerance int       `env:"TWOFACTOR_TOLERANCE" envDefault:"1"`    // Accepted clock skew in time steps, each direction
}

// GetDefaults returns a copy with RFC 6238 standard defaults applied to
// zero-valued fields.
func (c Config) GetDefaults() Config {
	if c.Algorithm == "" {
		c.Algorithm = DefaultAlgorithm
	}
	if c.Digits == 0 {
		c.Digits = DefaultDigits
	}
	if c.Period == 0 {
		c.Period = DefaultPeriod
	}
	if c.Tolerance == 0 {
		c.Tolerance = DefaultTolerance
	}
	return c
}

// Validate rejects configurations that would produce unverifiable codes.
func (c Config) Validate() error {
	if _, err := c.Algorithm.Hash(); err != nil {
		return err
	}
	if c.Digits < 6 || c.Digits > 10 {
		return fmt.Errorf("%w: digits must be between 6 and 10, got %d", ErrInvalidConfig, c.Digits)
	}
	if c.Period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %d", ErrInvalidConfig, c.Period)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must not be negative, got %d", ErrInvalidConfig, c.Tolerance)
	}
	return nil
}

// ReplayWindow returns how long an accepted code stays time-valid given the
// tolerance: period × (2×tolerance + 1) seconds.
func (c Config) ReplayWindow() time.Duration {
	c = c.GetDefaults()
	return time.Duration(c.Period*(2*c.Tolerance+1)) * time.Second
}
