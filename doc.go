// Package credrot issues, renews, rotates, and revokes API-client
// credentials: short-lived HMAC-signed access tokens paired with long-lived
// opaque refresh credentials, backed by a per-subject revocation table and a
// per-action attempt limiter.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// credrot is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy, and value types ([TokenPair], [MetricsSnapshot]).
// Claim encoding lives in the token sub-package, refresh persistence in the
// refresh sub-package, and rate limiting under internal/ where it is never
// exported.
//
// # What this package must NOT do
//
//   - Expose which internal check failed on a credential-validation path;
//     every refresh failure is the one generic [ErrRefreshInvalid].
//   - Cache credential state in-process beyond a single call: the refresh
//     table and rate windows are shared across every server process, so a
//     local cache would resurrect revoked credentials.
//   - Perform HTTP routing, body parsing, or primary-credential checks —
//     those belong to the surrounding application and the
//     [IdentityVerifier] collaborator.
package credrot
