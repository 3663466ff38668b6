package credrot

import (
	"errors"
	"log/slog"
	"time"

	"github.com/credrot/credrot/internal/rate"
	"github.com/credrot/credrot/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until the first Engine method call (the optional cleanup goroutine
// starts at Build but sleeps until its first tick).
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	store    RefreshStore
	verifier IdentityVerifier
	logger   *slog.Logger

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the rate limiter. Required while
// RateLimit.Enabled is true.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRefreshStore sets the refresh-credential store. Required.
func (b *Builder) WithRefreshStore(store RefreshStore) *Builder {
	b.store = store
	return b
}

// WithVerifier sets the identity-verification collaborator. Required.
func (b *Builder) WithVerifier(v IdentityVerifier) *Builder {
	b.verifier = v
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration and dependencies and returns a ready
// Engine. A secret below the 32-byte floor fails here with [ErrWeakSecret],
// before any token can be issued.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("refresh store is required")
	}
	if b.verifier == nil {
		return nil, errors.New("identity verifier is required")
	}
	if b.config.RateLimit.Enabled && b.redis == nil {
		return nil, errors.New("redis client is required while rate limiting is enabled")
	}

	now := b.config.Now
	if now == nil {
		now = time.Now
	}

	codec, err := token.NewCodec(token.Config{
		Issuer:         b.config.Token.Issuer,
		Secret:         b.config.Token.Secret,
		AccessTTL:      b.config.Token.AccessTTL,
		RenewThreshold: b.config.Token.RenewThreshold,
		Now:            now,
	})
	if err != nil {
		if errors.Is(err, token.ErrSecretTooShort) {
			return nil, ErrWeakSecret
		}
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		config:   b.config,
		codec:    codec,
		store:    b.store,
		verifier: b.verifier,
		metrics:  NewMetrics(b.config.Metrics),
		logger:   logger,
		now:      now,
	}
	if b.config.RateLimit.Enabled {
		e.limiter = rate.New(b.redis, b.config.RateLimit.RedisPrefix)
	}
	if b.config.Cleanup.Enabled {
		e.cleanupStop = make(chan struct{})
		e.cleanupDone = make(chan struct{})
		go e.runCleanup(b.config.Cleanup.Interval)
	}

	b.built = true
	return e, nil
}
