package sessionguard

import (
	"context"
	"sync"
	"time"

	"github.com/campuskit/sessionguard/internal/rate"
	"github.com/campuskit/sessionguard/password"
)

// RateDecision is the limiter's verdict for one outgoing request. The
// Guard never performs or blocks the request itself; callers must honor
// the verdict. RetryAfter is set only on denial, in whole seconds.
type RateDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Guard is the root object of the auth resilience core. Build one per
// client context with [Builder]; all methods are safe for concurrent use.
type Guard struct {
	config   Config
	provider Provider
	limiter  *rate.Limiter
	pending  *pendingState
	notify   *notifyDispatcher
	metrics  *Metrics
	monitor  *TokenMonitor
	warnf    func(string, ...any)
	now      func() time.Time

	mu         sync.Mutex
	sessionErr error
}

// Close releases Guard-owned background resources: the monitor's polling
// goroutine and the notification dispatcher.
func (g *Guard) Close() {
	if g == nil {
		return
	}
	if g.monitor != nil {
		g.monitor.Stop()
	}
	if g.notify != nil {
		g.notify.Close()
	}
}

/*
====================================
RATE LIMITING
====================================
*/

// CheckRateLimit decides whether a request to endpointKey may proceed.
// Query strings are stripped so parameterized calls to one logical route
// share a counter; keys whose path contains the auth marker use the
// stricter quota.
func (g *Guard) CheckRateLimit(endpointKey string) RateDecision {
	if g == nil || g.limiter == nil {
		return RateDecision{Allowed: true}
	}
	d := g.limiter.Check(endpointKey)
	if !d.Allowed {
		g.metrics.Inc(MetricRateLimitDenied)
	}
	return RateDecision{Allowed: d.Allowed, RetryAfter: d.RetryAfter}
}

// ResetRateLimits clears all rate-limit windows, as on a full
// application reload.
func (g *Guard) ResetRateLimits() {
	if g == nil || g.limiter == nil {
		return
	}
	g.limiter.Reset()
}

/*
====================================
PASSWORD STRENGTH
====================================
*/

// ValidatePassword scores a candidate password for the host's forms.
// Pure delegation to package password; kept on the Guard so pages depend
// on one produced surface.
func (g *Guard) ValidatePassword(pw string) password.Assessment {
	return password.Validate(pw)
}

/*
====================================
PENDING TWO-FACTOR SESSION
====================================
*/

// StartHydration begins restoring the persisted pending-session flag.
// Call once after construction, before mounting any verification view.
func (g *Guard) StartHydration(ctx context.Context) {
	if g == nil || g.pending == nil {
		return
	}
	g.pending.StartHydration(ctx)
}

// HasHydrated reports whether persisted session state finished loading.
func (g *Guard) HasHydrated() bool {
	if g == nil || g.pending == nil {
		return false
	}
	return g.pending.HasHydrated()
}

// OnHydrationFinished runs fn once hydration completes, immediately if
// it already has.
func (g *Guard) OnHydrationFinished(fn func()) {
	if g == nil || g.pending == nil || fn == nil {
		return
	}
	g.pending.OnHydrationFinished(fn)
}

// PendingSession returns the outstanding two-factor challenge.
// ErrHydrationPending before the store has loaded; ErrNoPendingSession
// when loaded and absent.
func (g *Guard) PendingSession() (PendingSession, error) {
	if g == nil || g.pending == nil {
		return PendingSession{}, ErrGuardNotReady
	}
	return g.pending.Pending()
}

// BeginTwoFactor records that primary credentials were accepted for
// email but verification is still required. Called by the host's login
// path when the backend answers "requires two-factor". A previous
// unanswered challenge is replaced.
func (g *Guard) BeginTwoFactor(ctx context.Context, email string) (PendingSession, error) {
	if g == nil || g.pending == nil {
		return PendingSession{}, ErrGuardNotReady
	}
	return g.pending.Begin(ctx, email, g.now())
}

// ClearTwoFactor destroys the pending challenge, as on a fresh top-level
// login restart.
func (g *Guard) ClearTwoFactor(ctx context.Context) error {
	if g == nil || g.pending == nil {
		return ErrGuardNotReady
	}
	return g.pending.Clear(ctx)
}

/*
====================================
SHARED SESSION ERROR SLOT
====================================
*/

// SetSessionError publishes an error to the session-wide slot that the
// verification flow surfaces when it has no transient error of its own.
func (g *Guard) SetSessionError(err error) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.sessionErr = err
	g.mu.Unlock()
}

// SessionError reads the session-wide error slot.
func (g *Guard) SessionError() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionErr
}

// ClearSessionError empties the session-wide error slot.
func (g *Guard) ClearSessionError() {
	g.SetSessionError(nil)
}

/*
====================================
TOKEN LIFECYCLE
====================================
*/

// Monitor returns the token lifecycle monitor.
func (g *Guard) Monitor() *TokenMonitor {
	if g == nil {
		return nil
	}
	return g.monitor
}

// StartMonitor begins expiry polling for the life of the session.
func (g *Guard) StartMonitor(ctx context.Context) {
	if g == nil || g.monitor == nil {
		return
	}
	g.monitor.Start(ctx)
}

/*
====================================
OBSERVABILITY
====================================
*/

// MetricsSnapshot copies the Guard's counters.
func (g *Guard) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return g.metrics.Snapshot()
}

// NotifyDropped reports notifications dropped by a full buffer.
func (g *Guard) NotifyDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.notify.Dropped()
}

// metricIncRaw adapts the metrics registry to the int-typed metric IDs
// carried by internal/flows deps structs.
func (g *Guard) metricIncRaw(id int) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Inc(MetricID(id))
}
