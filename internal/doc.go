// Package internal contains helper utilities that are intentionally
// private to sessionguard, currently secure one-time-code generation for
// reference providers and test fixtures.
//
// # Sub-packages
//
//   - flows - pure-function orchestrators for verify/resend operations
//   - rate - in-process fixed-window rate limit primitives
//   - stores - Redis-backed pending-session persistence
//
// # What this package must NOT do
//
//   - Export types that appear in the public sessionguard API.
//   - Be imported by any package outside the sessionguard module.
package internal
