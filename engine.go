package credrot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/credrot/credrot/internal/opaque"
	"github.com/credrot/credrot/internal/rate"
	"github.com/credrot/credrot/refresh"
	"github.com/credrot/credrot/token"
)

// Limiter actions. The limiter keys windows by action+origin, so login
// saturation never blocks rotation for the same origin.
const (
	actionLogin  = "login"
	actionRotate = "rotate"
)

// Engine exposes the five credential operations: Login/IssueFor, Renew,
// Rotate, Revoke, and RevokeAll. Safe for concurrent use.
type Engine struct {
	config   Config
	codec    *token.Codec
	store    RefreshStore
	verifier IdentityVerifier
	limiter  *rate.Limiter
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time

	cleanupStop chan struct{}
	cleanupDone chan struct{}
	closeOnce   sync.Once
}

// Login verifies primary credentials through the [IdentityVerifier] and, on
// success, issues a fresh access+refresh pair. origin identifies the caller
// for rate limiting (typically the client IP). A successful login clears the
// origin's failed-login window.
func (e *Engine) Login(ctx context.Context, identifier, password, origin string) (TokenPair, error) {
	if err := e.allow(ctx, actionLogin, origin,
		e.config.RateLimit.MaxLoginAttempts, e.config.RateLimit.LoginWindow); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metrics.Inc(MetricLoginRateLimited)
		}
		return TokenPair{}, err
	}

	subject, err := e.verifier.VerifyCredentials(ctx, identifier, password)
	if err != nil || subject.ID == "" || subject.Disabled {
		// One generic failure regardless of the cause.
		e.metrics.Inc(MetricLoginFailure)
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, err := e.IssueFor(ctx, subject)
	if err != nil {
		return TokenPair{}, err
	}

	if e.limiter != nil {
		if err := e.limiter.Reset(ctx, actionLogin, origin); err != nil {
			e.logger.Warn("credrot: login window reset failed", "error", err)
		}
	}
	return pair, nil
}

// IssueFor issues an access+refresh pair for an already-verified subject.
// It writes exactly one refresh row and revokes nothing, so a subject may
// hold concurrent sessions — unless Refresh.MaxActivePerSubject is set, in
// which case issuing past the cap revokes the subject's oldest live
// credential first.
func (e *Engine) IssueFor(ctx context.Context, subject Subject) (TokenPair, error) {
	if subject.ID == "" || subject.Disabled {
		return TokenPair{}, ErrUnknownSubject
	}

	now := e.now()
	if cap := e.config.Refresh.MaxActivePerSubject; cap > 0 {
		n, err := e.store.CountActive(ctx, subject.ID, now)
		if err != nil {
			return TokenPair{}, fmt.Errorf("refresh store: %w", err)
		}
		if n >= cap {
			if err := e.store.RevokeOldest(ctx, subject.ID, now); err != nil {
				return TokenPair{}, fmt.Errorf("refresh store: %w", err)
			}
		}
	}

	pair, err := e.mintPair(ctx, subject.ID, now)
	if err != nil {
		return TokenPair{}, err
	}
	e.metrics.Inc(MetricIssueSuccess)
	return pair, nil
}

// Renew returns accessToken unchanged while its renewedAt is inside the
// configured threshold, avoiding signature churn on every request. Past the
// threshold it returns a re-signed token with extended expiry; the caller
// must propagate the new string back to the client (for example via a
// response header), since the old one remains valid only until its original
// expiry.
func (e *Engine) Renew(ctx context.Context, accessToken string) (string, error) {
	next, reissued, err := e.codec.Renew(accessToken)
	if err != nil {
		return "", e.mapTokenErr(err)
	}
	if reissued {
		e.metrics.Inc(MetricRenewReissued)
	} else {
		e.metrics.Inc(MetricRenewNoop)
	}
	return next, nil
}

// Rotate exchanges a refresh credential for a fresh access+refresh pair,
// atomically consuming the presented credential. A replayed value — one
// already consumed by an earlier or concurrent rotation — fails with
// [ErrRefreshInvalid], which is exactly the signal that lets a legitimate
// client detect that its credential was stolen and used.
func (e *Engine) Rotate(ctx context.Context, refreshToken, origin string) (TokenPair, error) {
	if err := e.allow(ctx, actionRotate, origin,
		e.config.RateLimit.MaxRotateAttempts, e.config.RateLimit.RotateWindow); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metrics.Inc(MetricRotateRateLimited)
		}
		return TokenPair{}, err
	}

	if err := opaque.Parse(refreshToken); err != nil {
		e.metrics.Inc(MetricRotateFailure)
		return TokenPair{}, ErrRefreshInvalid
	}

	now := e.now()
	subjectID, err := e.store.ConsumeRotate(ctx, opaque.Hash(refreshToken), now)
	if err != nil {
		switch {
		case errors.Is(err, refresh.ErrConsumed):
			e.metrics.Inc(MetricReplayRejected)
			e.logger.Warn("credrot: consumed refresh credential replayed")
			return TokenPair{}, ErrRefreshInvalid
		case errors.Is(err, refresh.ErrNotRotatable):
			e.metrics.Inc(MetricRotateFailure)
			return TokenPair{}, ErrRefreshInvalid
		default:
			return TokenPair{}, fmt.Errorf("refresh store: %w", err)
		}
	}

	subject, err := e.verifier.SubjectByID(ctx, subjectID)
	if err != nil || subject.Disabled {
		// The consumed row stays revoked: a vanished subject must not keep
		// a usable credential behind.
		e.metrics.Inc(MetricRotateFailure)
		return TokenPair{}, ErrUnknownSubject
	}

	pair, err := e.mintPair(ctx, subject.ID, now)
	if err != nil {
		return TokenPair{}, err
	}
	e.metrics.Inc(MetricRotateSuccess)
	return pair, nil
}

// Revoke marks the presented refresh credential as revoked. Idempotent:
// revoking an unknown or already-revoked value is not an error.
func (e *Engine) Revoke(ctx context.Context, refreshToken string) error {
	if err := opaque.Parse(refreshToken); err != nil {
		// A value that could never have been issued revokes nothing.
		return nil
	}
	if err := e.store.Revoke(ctx, opaque.Hash(refreshToken)); err != nil {
		return fmt.Errorf("refresh store: %w", err)
	}
	e.metrics.Inc(MetricRevoke)
	return nil
}

// RevokeAll revokes every live refresh credential of the subject in one
// logical operation. Best effort under concurrent issuance: a credential
// created after the statement's snapshot is not covered. Idempotent.
func (e *Engine) RevokeAll(ctx context.Context, subjectID string) error {
	if _, err := e.store.RevokeAll(ctx, subjectID); err != nil {
		return fmt.Errorf("refresh store: %w", err)
	}
	e.metrics.Inc(MetricRevokeAll)
	return nil
}

// ValidateAccess verifies an access token and returns its claims.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*token.Claims, error) {
	claims, err := e.codec.Decode(accessToken)
	if err != nil {
		return nil, e.mapTokenErr(err)
	}
	return claims, nil
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

func (e *Engine) mintPair(ctx context.Context, subjectID string, now time.Time) (TokenPair, error) {
	access, err := e.codec.Issue(subjectID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	value, hash, err := opaque.NewValue()
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh credential: %w", err)
	}

	cred := refresh.Credential{
		TokenHash: hash,
		SubjectID: subjectID,
		ExpiresAt: now.Add(e.config.Refresh.TTL),
		CreatedAt: now,
	}
	if err := e.store.Create(ctx, cred); err != nil {
		return TokenPair{}, fmt.Errorf("refresh store: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: value}, nil
}

func (e *Engine) allow(ctx context.Context, action, origin string, maxAttempts int, window time.Duration) error {
	if e.limiter == nil {
		return nil
	}
	ok, retryAfter, err := e.limiter.Allow(ctx, action, origin, maxAttempts, window)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if !ok {
		return &RateLimitedError{Action: action, RetryAfter: retryAfter}
	}
	return nil
}

func (e *Engine) mapTokenErr(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrSignature):
		return ErrTokenInvalid
	default:
		return ErrTokenMalformed
	}
}
