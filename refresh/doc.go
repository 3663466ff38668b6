// Package refresh owns the durable table of refresh credentials: creation,
// lookup-free atomic consumption for rotation, revocation, and the expired-row
// sweep. No other component writes to this table.
//
// # Storage model
//
// Credentials are opaque random values generated by the engine; this package
// only ever sees their SHA-256 hashes, which form the table's unique key. A
// row's revoked flag is monotonic: once set it never clears. Expired rows are
// invalid whether or not the sweep has deleted them yet — deletion is an
// optimization, not a correctness requirement.
//
// # Rotation contract
//
// ConsumeRotate is the store's single ordering-sensitive operation: one
// conditional UPDATE that revokes the row only while it is still live and
// returns its owner. Two concurrent rotations of the same value therefore
// resolve inside the database — the second matches zero rows and fails.
//
// # What this package must NOT do
//
//   - See or store a raw credential value.
//   - Distinguish absent, revoked, and expired rows to callers beyond the
//     consumed/not-rotatable split the engine needs for replay accounting.
//   - Import credrot, token, or rate.
package refresh
