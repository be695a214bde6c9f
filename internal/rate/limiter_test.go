package rate

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	l := New(
		Config{MaxRequests: 100, Window: time.Minute},
		Config{MaxRequests: 5, Window: time.Minute},
		"/auth/",
		clock.now,
	)
	return l, clock
}

func mustAllow(t *testing.T, l *Limiter, key string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if d := l.Check(key); !d.Allowed {
			t.Fatalf("request %d to %q denied, expected allow", i+1, key)
		}
	}
}

func TestStrictQuotaDeniesSixth(t *testing.T) {
	l, _ := newTestLimiter()

	mustAllow(t, l, "POST /api/auth/login", 5)

	d := l.Check("POST /api/auth/login")
	if d.Allowed {
		t.Fatal("sixth auth request within window must be denied")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("RetryAfter = %v, want (0, 1m]", d.RetryAfter)
	}
}

func TestRetryAfterRoundsUp(t *testing.T) {
	l, clock := newTestLimiter()

	mustAllow(t, l, "POST /api/auth/login", 5)
	clock.advance(59*time.Second + 500*time.Millisecond)

	d := l.Check("POST /api/auth/login")
	if d.Allowed {
		t.Fatal("expected denial inside the window")
	}
	if d.RetryAfter != time.Second {
		t.Fatalf("RetryAfter = %v, want 1s (500ms rounded up)", d.RetryAfter)
	}
}

func TestWindowExpiryStartsFresh(t *testing.T) {
	l, clock := newTestLimiter()

	mustAllow(t, l, "POST /api/auth/login", 5)
	if d := l.Check("POST /api/auth/login"); d.Allowed {
		t.Fatal("quota should be exhausted")
	}

	clock.advance(time.Minute)

	mustAllow(t, l, "POST /api/auth/login", 5)
	if d := l.Check("POST /api/auth/login"); d.Allowed {
		t.Fatal("fresh window must carry a fresh quota, not an open door")
	}
}

func TestBoundaryEqualsResetStartsFresh(t *testing.T) {
	l, clock := newTestLimiter()

	mustAllow(t, l, "POST /api/auth/login", 5)

	// Exactly at resetAt the window is already over.
	clock.advance(time.Minute)
	if d := l.Check("POST /api/auth/login"); !d.Allowed {
		t.Fatal("request at the exact reset instant must open a new window")
	}
}

func TestQueryStringSharesWindow(t *testing.T) {
	l, _ := newTestLimiter()

	mustAllow(t, l, "POST /api/auth/login?attempt=1", 3)
	mustAllow(t, l, "POST /api/auth/login?attempt=2", 2)

	if d := l.Check("POST /api/auth/login"); d.Allowed {
		t.Fatal("query variants must share one counter")
	}
}

func TestDefaultQuotaForNonAuthRoutes(t *testing.T) {
	l, _ := newTestLimiter()

	mustAllow(t, l, "GET /api/grades", 100)
	if d := l.Check("GET /api/grades"); d.Allowed {
		t.Fatal("101st request must be denied")
	}
}

func TestAuthMarkerSelectsStrictConfig(t *testing.T) {
	l, _ := newTestLimiter()

	// Same prefix, different class.
	mustAllow(t, l, "GET /api/students", 6)
	mustAllow(t, l, "POST /api/auth/verify-otp", 5)

	if d := l.Check("POST /api/auth/verify-otp"); d.Allowed {
		t.Fatal("auth route must use the strict quota")
	}
	if d := l.Check("GET /api/students"); !d.Allowed {
		t.Fatal("default route must not be affected by the strict quota")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	mustAllow(t, l, "POST /api/auth/login", 5)
	mustAllow(t, l, "POST /api/auth/resend-otp", 5)

	if d := l.Check("POST /api/auth/login"); d.Allowed {
		t.Fatal("login quota should be exhausted")
	}
}

func TestResetClearsAllWindows(t *testing.T) {
	l, _ := newTestLimiter()

	mustAllow(t, l, "POST /api/auth/login", 5)
	l.Reset()
	mustAllow(t, l, "POST /api/auth/login", 5)
}
