// Package sessionguard is the client-held auth resilience core of the
// CampusKit school-management web client. It decides when the client talks
// to the backend identity provider and how it reacts to the answers:
// gating a session behind one-time-passcode verification, warning of and
// recovering from access-token expiry without a forced re-login, and
// throttling security-sensitive requests before they leave the client.
//
// The package exposes four composable components behind one [Guard] built
// through [Builder]:
//
//   - a fixed-window per-endpoint rate limiter ([Guard.CheckRateLimit])
//   - the password strength evaluator (package password)
//   - the OTP verification flow ([VerificationFlow])
//   - the token lifecycle monitor ([TokenMonitor])
//
// # Architecture boundaries
//
// sessionguard is the public surface. It exposes [Guard], [Builder],
// [Config], and value types ([Notification], [PendingSession],
// [RateDecision]). Flow orchestration, window bookkeeping, and the
// persisted pending-session store live under internal/ and are never
// exported.
//
// # What this package must NOT do
//
//   - Validate credentials or OTP codes itself. The backend identity
//     provider owns that; this package only decides when to call it.
//   - Perform network I/O on behalf of rate-limited callers.
//     CheckRateLimit is a verdict; honoring it is the caller's job.
//   - Sign or verify tokens. Token expiry is introspected without a key;
//     cryptographic validation belongs to the backend.
package sessionguard
