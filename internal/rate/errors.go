package rate

import "errors"

var (
	// ErrBackendUnavailable wraps Redis transport failures.
	ErrBackendUnavailable = errors.New("rate limit backend unavailable")
	// ErrBadReply is returned when the limiter script replies with an
	// unexpected shape.
	ErrBadReply = errors.New("unexpected rate limiter reply")
)
