package credrot

import (
	"fmt"
	"time"

	"github.com/credrot/credrot/token"
)

// Config carries every tunable the engine needs. Construct it once at
// startup, validate through [Builder.Build], and treat it as immutable
// afterwards; there is no ambient global configuration.
type Config struct {
	Token     TokenConfig
	Refresh   RefreshConfig
	RateLimit RateLimitConfig
	Cleanup   CleanupConfig
	Metrics   MetricsConfig

	// Now supplies the current time to every component. Nil means time.Now.
	Now func() time.Time
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures the access-token codec.
type TokenConfig struct {
	Issuer string
	// Secret is the process-wide HMAC-SHA-256 signing key. Shorter than
	// 32 bytes is rejected at Build.
	Secret []byte
	// AccessTTL bounds how long a leaked access token stays usable; there
	// is no revocation path for access tokens before natural expiry, so
	// keep this short.
	AccessTTL time.Duration
	// RenewThreshold is the minimum age of a token's renewedAt before Renew
	// re-signs it. Inside the threshold Renew is a no-op.
	RenewThreshold time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig configures refresh-credential issuance.
type RefreshConfig struct {
	TTL time.Duration
	// MaxActivePerSubject caps live credentials per subject; issuing past
	// the cap revokes the subject's oldest live credential first.
	// Zero disables the cap.
	MaxActivePerSubject int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig configures the fixed-window attempt limiter. When Enabled
// is false the engine runs unguarded and no Redis client is required.
type RateLimitConfig struct {
	Enabled           bool
	RedisPrefix       string
	MaxLoginAttempts  int
	LoginWindow       time.Duration
	MaxRotateAttempts int
	RotateWindow      time.Duration
}

/*
====================================
CLEANUP CONFIG
====================================
*/

// CleanupConfig configures the periodic sweep deleting expired refresh rows.
// The sweep is an optimization: expired rows are invalid whether or not they
// have been deleted yet.
type CleanupConfig struct {
	Enabled  bool
	Interval time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters exposed via
// [Engine.MetricsSnapshot].
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns a Config with production-shaped defaults.
// Token.Secret must still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:         "credrot",
			AccessTTL:      15 * time.Minute,
			RenewThreshold: 5 * time.Minute,
		},
		Refresh: RefreshConfig{
			TTL: 30 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RedisPrefix:       "cr",
			MaxLoginAttempts:  5,
			LoginWindow:       15 * time.Minute,
			MaxRotateAttempts: 30,
			RotateWindow:      time.Minute,
		},
		Cleanup: CleanupConfig{
			Enabled:  true,
			Interval: time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration. Every failure wraps
// [ErrConfigInvalid]; a short secret additionally matches [ErrWeakSecret].
func (c *Config) Validate() error {
	if len(c.Token.Secret) < token.MinSecretLen {
		return ErrWeakSecret
	}
	if c.Token.AccessTTL <= 0 {
		return fmt.Errorf("%w: Token.AccessTTL must be positive", ErrConfigInvalid)
	}
	if c.Token.RenewThreshold < 0 || c.Token.RenewThreshold >= c.Token.AccessTTL {
		return fmt.Errorf("%w: Token.RenewThreshold must be shorter than Token.AccessTTL", ErrConfigInvalid)
	}
	if c.Refresh.TTL <= 0 {
		return fmt.Errorf("%w: Refresh.TTL must be positive", ErrConfigInvalid)
	}
	if c.Refresh.TTL <= c.Token.AccessTTL {
		return fmt.Errorf("%w: Refresh.TTL must exceed Token.AccessTTL", ErrConfigInvalid)
	}
	if c.Refresh.MaxActivePerSubject < 0 {
		return fmt.Errorf("%w: Refresh.MaxActivePerSubject must not be negative", ErrConfigInvalid)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxLoginAttempts <= 0 || c.RateLimit.MaxRotateAttempts <= 0 {
			return fmt.Errorf("%w: rate limit attempt budgets must be positive", ErrConfigInvalid)
		}
		if c.RateLimit.LoginWindow <= 0 || c.RateLimit.RotateWindow <= 0 {
			return fmt.Errorf("%w: rate limit windows must be positive", ErrConfigInvalid)
		}
	}
	if c.Cleanup.Enabled && c.Cleanup.Interval <= 0 {
		return fmt.Errorf("%w: Cleanup.Interval must be positive", ErrConfigInvalid)
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = append([]byte(nil), cfg.Token.Secret...)
	return out
}
