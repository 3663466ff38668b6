package credrot

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfigInvalid is fatal at startup; it is the only error class a
	// caller may treat as process-halting.
	ErrConfigInvalid = errors.New("invalid configuration")
	// ErrWeakSecret rejects signing secrets under the 32-byte floor.
	ErrWeakSecret = fmt.Errorf("%w: signing secret shorter than 32 bytes", ErrConfigInvalid)
	// ErrInvalidCredentials covers every primary-credential failure. Callers
	// must not retry with the same credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshInvalid is deliberately undifferentiated across not-found,
	// expired, and revoked refresh credentials. The caller recovers by
	// forcing re-login.
	ErrRefreshInvalid = errors.New("invalid or expired refresh token")
	// ErrUnknownSubject means the owning identity vanished or was disabled.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrRateLimited tells the caller to back off. Concrete instances are
	// [RateLimitedError] values carrying the retry-after hint.
	ErrRateLimited = errors.New("rate limited")
	// ErrTokenMalformed is returned for access tokens that do not parse.
	ErrTokenMalformed = errors.New("malformed access token")
	// ErrTokenInvalid is returned for access tokens whose signature fails.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrTokenExpired is returned for well-signed access tokens past expiry.
	// Clients treat it identically to ErrTokenInvalid.
	ErrTokenExpired = errors.New("access token expired")
)

// RateLimitedError is the concrete error for a denied attempt. RetryAfter is
// the remaining fixed window. It unwraps to [ErrRateLimited].
type RateLimitedError struct {
	Action     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s rate limited, retry after %s", e.Action, e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}
