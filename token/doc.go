// Package token implements the signed access-credential codec: claim
// construction, HMAC-SHA-256 signing, verification, and threshold-gated
// renewal.
//
// # Architecture boundaries
//
// This package owns everything between a Claims value and its compact signed
// string form. Refresh credentials, persistence, and rate limiting are the
// Engine's concern and never appear here.
//
// # What this package must NOT do
//
//   - Perform any I/O (no Redis, no SQL, no network).
//   - Import credrot or any of its other sub-packages.
//   - Trust a single claim field before the signature has been verified.
package token
