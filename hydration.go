package sessionguard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// pendingState owns the client-side view of the persisted two-factor
// pending-session flag. Reads that depend on it (notably the verification
// flow's redirect decision) must wait for hydration: the one-time initial
// load from the backing store. Before hydration completes the flag is
// unknown, not absent.
type pendingState struct {
	mu       sync.Mutex
	backend  pendingBackend
	clientID string
	ttl      time.Duration
	warn     func(string, ...any)

	hydrated bool
	waiters  []func()
	rec      *PendingSession
}

func newPendingState(backend pendingBackend, clientID string, ttl time.Duration, warn func(string, ...any)) *pendingState {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return &pendingState{
		backend:  backend,
		clientID: clientID,
		ttl:      ttl,
		warn:     warn,
	}
}

// StartHydration kicks off the initial load in the background. Without a
// backend there is nothing to restore and hydration completes immediately.
func (p *pendingState) StartHydration(ctx context.Context) {
	if p.backend == nil {
		p.finishHydration(nil)
		return
	}
	go p.hydrate(ctx)
}

// hydrate performs the initial load synchronously. A backend failure is
// logged and treated as "no pending session": the flag's absence already
// means no challenge is outstanding, and blocking the whole flow on a
// degraded store would strand the user on a blank screen.
func (p *pendingState) hydrate(ctx context.Context) {
	rec, err := p.backend.Get(ctx, clientIDFromContext(ctx, p.clientID))
	switch {
	case err == nil:
		p.finishHydration(&rec)
	case errors.Is(err, ErrNoPendingSession):
		p.finishHydration(nil)
	default:
		p.warn("sessionguard: pending session hydration failed: %v", err)
		p.finishHydration(nil)
	}
}

func (p *pendingState) finishHydration(rec *PendingSession) {
	p.mu.Lock()
	if p.hydrated {
		p.mu.Unlock()
		return
	}
	p.hydrated = true
	p.rec = rec
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	// Callbacks run outside the lock so they may read pending state.
	for _, fn := range waiters {
		fn()
	}
}

// HasHydrated reports whether the initial load has completed.
func (p *pendingState) HasHydrated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hydrated
}

// OnHydrationFinished runs fn once hydration completes, immediately if it
// already has. Each registered fn runs exactly once.
func (p *pendingState) OnHydrationFinished(fn func()) {
	p.mu.Lock()
	if !p.hydrated {
		p.waiters = append(p.waiters, fn)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	fn()
}

// Pending returns the outstanding two-factor session, if any. The error
// distinguishes "not loaded yet" from "loaded and absent".
func (p *pendingState) Pending() (PendingSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hydrated {
		return PendingSession{}, ErrHydrationPending
	}
	if p.rec == nil {
		return PendingSession{}, ErrNoPendingSession
	}
	return *p.rec, nil
}

// Begin records a fresh two-factor challenge for email, replacing any
// previous one: a fresh top-level login restart supersedes an older
// unanswered challenge.
func (p *pendingState) Begin(ctx context.Context, email string, now time.Time) (PendingSession, error) {
	rec := PendingSession{
		ID:           uuid.NewString(),
		Email:        email,
		PendingSince: now.Unix(),
	}

	if p.backend != nil {
		if err := p.backend.Save(ctx, clientIDFromContext(ctx, p.clientID), rec, p.ttl); err != nil {
			return PendingSession{}, err
		}
	}

	p.mu.Lock()
	p.hydrated = true
	p.rec = &rec
	p.mu.Unlock()
	return rec, nil
}

// Clear destroys the pending flag (successful verification or explicit
// cancel). Clearing an absent flag is a no-op.
func (p *pendingState) Clear(ctx context.Context) error {
	if p.backend != nil {
		if _, err := p.backend.Clear(ctx, clientIDFromContext(ctx, p.clientID)); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.rec = nil
	p.mu.Unlock()
	return nil
}
