package sessionguard

import "errors"

var (
	// ErrGuardNotReady is returned when a Guard method is invoked before
	// Build wired its dependencies.
	ErrGuardNotReady = errors.New("guard not initialized")
	// ErrHydrationPending is returned when pending-session state is read
	// before the persisted store finished its initial load.
	ErrHydrationPending = errors.New("session state hydration pending")
	// ErrNoPendingSession is returned when no two-factor challenge is
	// outstanding for this client context.
	ErrNoPendingSession = errors.New("no pending two-factor session")
	// ErrVerificationInvalid is returned for a wrong or expired one-time
	// code. The pending session survives and the user may retry.
	ErrVerificationInvalid = errors.New("invalid verification code")
	// ErrVerificationUnavailable is returned when the verify endpoint or
	// the pending-session backend cannot be reached.
	ErrVerificationUnavailable = errors.New("verification backend unavailable")
	// ErrResendCooldown is returned when a resend is requested before the
	// cooldown from the previous resend has elapsed.
	ErrResendCooldown = errors.New("resend cooldown active")
	// ErrResendUnavailable is returned when the resend endpoint fails.
	// The cooldown is not engaged so the user may retry immediately.
	ErrResendUnavailable = errors.New("resend backend unavailable")
	// ErrRefreshUnavailable is returned when a token refresh fails.
	// Recovery is owned by the host's session-expired handling.
	ErrRefreshUnavailable = errors.New("token refresh unavailable")
	// ErrFlowClosed is returned when an action is invoked on a
	// verification flow that was cancelled, completed, or closed.
	ErrFlowClosed = errors.New("verification flow closed")
	// ErrTokenMalformed is returned when an access token cannot be parsed
	// for expiry introspection.
	ErrTokenMalformed = errors.New("malformed access token")
)
