package sessionguard

import (
	"context"
	"time"
)

// Provider is the interface callers must implement to connect sessionguard
// to the backend identity provider's client API. All methods are invoked
// from Guard-owned goroutines; implementations must be safe for concurrent
// use.
//
// Error classes matter more than error values: VerifyCode failures are
// surfaced inline and leave the pending session intact, ResendCode
// failures skip the cooldown so the user may retry, and RefreshAccessToken
// failures are handed to the host's session-expired path.
type Provider interface {
	// VerifyCode submits the assembled 6-digit code for the outstanding
	// two-factor challenge. A nil return means the session is established.
	VerifyCode(ctx context.Context, code string) error

	// ResendCode asks the backend to issue a fresh code to the pending
	// session's contact point.
	ResendCode(ctx context.Context) error

	// RefreshAccessToken exchanges the current refresh credential for a
	// new access token and returns the new expiry in epoch milliseconds.
	RefreshAccessToken(ctx context.Context) (expiresAt int64, err error)

	// TokenExpiry reports the current access token's expiry in epoch
	// milliseconds. ok is false when no expiry is known.
	TokenExpiry() (expiresAt int64, ok bool)

	// Authenticated reports whether a full session is currently held.
	// The monitor is inert (and its warning latch cleared) while false.
	Authenticated() bool
}

// PendingSession is the persisted fact that primary credentials were
// accepted but two-factor verification is still outstanding. At most one
// exists per client context; absence means no challenge is pending.
type PendingSession struct {
	ID           string
	Email        string
	PendingSince int64
}

// pendingBackend is the persistence seam for the pending-session flag.
// The production implementation wraps internal/stores; tests substitute
// fakes to drive hydration timing.
type pendingBackend interface {
	Save(ctx context.Context, clientID string, rec PendingSession, ttl time.Duration) error
	// Get returns ErrNoPendingSession when nothing is stored for the
	// client context.
	Get(ctx context.Context, clientID string) (PendingSession, error)
	Clear(ctx context.Context, clientID string) (bool, error)
}
