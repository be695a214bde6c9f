package sessionguard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestPendingState(backend pendingBackend) *pendingState {
	return newPendingState(backend, "default", 10*time.Minute, nil)
}

func TestHydrationWithoutBackendCompletesImmediately(t *testing.T) {
	p := newTestPendingState(nil)
	p.StartHydration(context.Background())

	if !p.HasHydrated() {
		t.Fatal("memory-only state must hydrate immediately")
	}
	if _, err := p.Pending(); !errors.Is(err, ErrNoPendingSession) {
		t.Fatalf("expected no pending session, got %v", err)
	}
}

func TestHydrationRestoresStoredChallenge(t *testing.T) {
	backend := &fakeBackend{rec: &PendingSession{ID: "abc", Email: "student@school.example"}}
	p := newTestPendingState(backend)
	p.StartHydration(context.Background())

	waitUntil(t, p.HasHydrated)

	got, err := p.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if got.ID != "abc" || got.Email != "student@school.example" {
		t.Fatalf("restored challenge mismatch: %+v", got)
	}
}

func TestPendingBeforeHydrationIsDistinctFromAbsent(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{getGate: gate}
	p := newTestPendingState(backend)
	p.StartHydration(context.Background())

	if _, err := p.Pending(); !errors.Is(err, ErrHydrationPending) {
		t.Fatalf("before load completes: got %v, want ErrHydrationPending", err)
	}

	close(gate)
	waitUntil(t, p.HasHydrated)

	if _, err := p.Pending(); !errors.Is(err, ErrNoPendingSession) {
		t.Fatalf("after load completes: got %v, want ErrNoPendingSession", err)
	}
}

func TestHydrationBackendFailureTreatedAsAbsent(t *testing.T) {
	var warned bool
	backend := &fakeBackend{getErr: errors.New("store offline")}
	p := newPendingState(backend, "default", time.Minute, func(string, ...any) { warned = true })

	p.hydrate(context.Background())

	if !p.HasHydrated() {
		t.Fatal("a failed load must still complete hydration")
	}
	if !warned {
		t.Fatal("backend failure should be logged")
	}
	if _, err := p.Pending(); !errors.Is(err, ErrNoPendingSession) {
		t.Fatalf("expected absent flag, got %v", err)
	}
}

func TestOnHydrationFinishedRunsEachWaiterOnce(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{getGate: gate}
	p := newTestPendingState(backend)
	p.StartHydration(context.Background())

	var mu sync.Mutex
	runs := make(map[string]int)
	record := func(name string) func() {
		return func() {
			mu.Lock()
			runs[name]++
			mu.Unlock()
		}
	}

	p.OnHydrationFinished(record("early-a"))
	p.OnHydrationFinished(record("early-b"))

	close(gate)
	waitUntil(t, p.HasHydrated)

	// Registration after completion fires immediately.
	p.OnHydrationFinished(record("late"))

	mu.Lock()
	defer mu.Unlock()
	for _, name := range []string{"early-a", "early-b", "late"} {
		if runs[name] != 1 {
			t.Fatalf("waiter %q ran %d times, want 1", name, runs[name])
		}
	}
}

func TestFlowHoldsRedirectUntilHydration(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{getGate: gate}
	g := newTestGuard(t, &fakeProvider{}, nil, nil)
	g.pending = newTestPendingState(backend)
	g.StartHydration(context.Background())

	f := g.NewVerificationFlow(context.Background())
	defer f.Close()

	if got := f.State(); got != StateAwaitingHydration {
		t.Fatalf("state before hydration = %v, want awaiting-hydration", got)
	}
	if err := f.SubmitDigit(context.Background(), 0, "1"); !errors.Is(err, ErrHydrationPending) {
		t.Fatalf("digit entry before hydration: got %v, want ErrHydrationPending", err)
	}

	close(gate)
	waitUntil(t, func() bool { return f.State() == StateNoPendingSession })
}

func TestFlowActivatesWhenChallengeRestored(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{
		rec:     &PendingSession{ID: "abc", Email: "student@school.example"},
		getGate: gate,
	}
	g := newTestGuard(t, &fakeProvider{}, nil, nil)
	g.pending = newTestPendingState(backend)
	g.StartHydration(context.Background())

	f := g.NewVerificationFlow(context.Background())
	defer f.Close()

	close(gate)
	waitUntil(t, func() bool { return f.State() == StateActive })
}

// keyedBackend stores one record per client ID, mirroring the real store's
// keying.
type keyedBackend struct {
	mu   sync.Mutex
	recs map[string]PendingSession
}

func (b *keyedBackend) Save(_ context.Context, clientID string, rec PendingSession, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recs == nil {
		b.recs = make(map[string]PendingSession)
	}
	b.recs[clientID] = rec
	return nil
}

func (b *keyedBackend) Get(_ context.Context, clientID string) (PendingSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.recs[clientID]
	if !ok {
		return PendingSession{}, ErrNoPendingSession
	}
	return rec, nil
}

func (b *keyedBackend) Clear(_ context.Context, clientID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.recs[clientID]
	delete(b.recs, clientID)
	return ok, nil
}

func TestHydrationHonorsContextClientID(t *testing.T) {
	backend := &keyedBackend{}
	ctx := WithClientID(context.Background(), "tab-9")

	writer := newTestPendingState(backend)
	want, err := writer.Begin(ctx, "student@school.example", time.Now())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// A reload of the same tab rehydrates from the same key.
	reader := newTestPendingState(backend)
	reader.hydrate(ctx)
	got, err := reader.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if got.ID != want.ID || got.Email != want.Email {
		t.Fatalf("rehydrated challenge mismatch: got %+v, want %+v", got, want)
	}

	// A context without the ID falls back to the default key and must
	// not see the tab's challenge.
	other := newTestPendingState(backend)
	other.hydrate(context.Background())
	if _, err := other.Pending(); !errors.Is(err, ErrNoPendingSession) {
		t.Fatalf("default key leaked another tab's challenge: %v", err)
	}
}

func TestPendingSessionSurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	build := func() *Guard {
		g, err := New().
			WithProvider(&fakeProvider{}).
			WithRedis(client).
			WithWarnLogger(func(string, ...any) {}).
			Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		t.Cleanup(g.Close)
		return g
	}

	first := build()
	want, err := first.BeginTwoFactor(context.Background(), "student@school.example")
	if err != nil {
		t.Fatalf("BeginTwoFactor: %v", err)
	}

	// A fresh Guard over the same store models an application reload.
	second := build()
	second.StartHydration(context.Background())
	waitUntil(t, second.HasHydrated)

	got, err := second.PendingSession()
	if err != nil {
		t.Fatalf("PendingSession after reload: %v", err)
	}
	if got.ID != want.ID || got.Email != want.Email {
		t.Fatalf("reload mismatch: got %+v, want %+v", got, want)
	}
}
