// Package rate implements the fixed-window attempt counter guarding
// externally reachable credential operations, keyed by (action, origin).
//
// The window is fixed, not sliding: a counter with a TTL. This admits
// bursting across a window boundary (up to 2x the limit in a short span
// straddling the reset); callers needing strict limits need a sliding
// variant this package does not provide.
//
// The check-and-increment runs as a single Redis Lua script, so the count is
// exact under concurrency and a window already at its limit is never
// incremented further.
package rate
