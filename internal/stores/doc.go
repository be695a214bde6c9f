// Package stores provides the Redis-backed persistence for the
// two-factor pending-session flag, versioned and binary-encoded with a
// TTL so an unanswered challenge cannot outlive its code.
//
// # Design
//
// One record per client context. Replacing the record is the write path
// for a fresh login restart; absence is the steady state. Get enforces
// the record's own expiry even when the backend TTL lags, deleting the
// stale record best-effort.
//
// # What this package must NOT do
//
//   - Import sessionguard or any sibling internal package.
//   - Generate or validate verification codes.
//   - Make redirect or verification decisions: those belong to the flow.
package stores
