package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript performs check-and-increment as one atomic step. A saturated
// window is never incremented; the deny branch returns the remaining window
// in milliseconds so callers can surface a retry-after hint. The TTL is set
// only on the first hit of a window (fixed-window semantics).
const allowScript = `
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= tonumber(ARGV[1]) then
  local ttl = redis.call("PTTL", KEYS[1])
  if ttl < 0 then
    ttl = 0
  end
  return {0, ttl}
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {1, count}
`

var allowLua = redis.NewScript(allowScript)

// Limiter counts attempts per (action, origin) pair in Redis. It holds no
// in-process state, so every server process sharing the Redis backend shares
// the same windows.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a [Limiter] backed by the given Redis client. prefix
// namespaces the counter keys.
func New(redisClient redis.UniversalClient, prefix string) *Limiter {
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Allow records one attempt for (action, origin) unless the current window
// already holds maxAttempts. On deny it returns how long until the window
// resets.
func (l *Limiter) Allow(ctx context.Context, action, origin string, maxAttempts int, window time.Duration) (bool, time.Duration, error) {
	res, err := allowLua.Run(ctx, l.redis,
		[]string{l.key(action, origin)},
		maxAttempts, window.Milliseconds(),
	).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	reply, ok := res.([]interface{})
	if !ok || len(reply) != 2 {
		return false, 0, ErrBadReply
	}
	allowed, ok := reply[0].(int64)
	if !ok {
		return false, 0, ErrBadReply
	}
	if allowed == 1 {
		return true, 0, nil
	}

	remainingMs, _ := reply[1].(int64)
	return false, time.Duration(remainingMs) * time.Millisecond, nil
}

// Reset clears the window for (action, origin). Called after a successful
// guarded action so earlier failures stop counting against the caller.
func (l *Limiter) Reset(ctx context.Context, action, origin string) error {
	if err := l.redis.Del(ctx, l.key(action, origin)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(action, origin string) string {
	return l.prefix + ":rw:" + action + ":" + origin
}
