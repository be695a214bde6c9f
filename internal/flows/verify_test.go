package flows

import (
	"context"
	"errors"
	"testing"
)

var (
	errNotReady    = errors.New("not ready")
	errInvalid     = errors.New("invalid code")
	errCooldown    = errors.New("cooldown")
	errUnavailable = errors.New("unavailable")
)

type metricRecorder struct {
	counts map[int]int
}

func newMetricRecorder() *metricRecorder {
	return &metricRecorder{counts: make(map[int]int)}
}

func (m *metricRecorder) inc(id int) { m.counts[id]++ }

func TestValidCode(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12345a", false},
		{"12 456", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidCode(tc.code); got != tc.want {
			t.Errorf("ValidCode(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestRunVerifyCodeRejectsMalformed(t *testing.T) {
	rec := newMetricRecorder()
	called := false

	err := RunVerifyCode(context.Background(), "12345a", VerifyDeps{
		VerifyCode: func(context.Context, string) error {
			called = true
			return nil
		},
		MetricInc: rec.inc,
		Metrics:   VerifyMetrics{Success: 1, Failure: 2},
		Errors:    VerifyErrors{NotReady: errNotReady, Invalid: errInvalid},
	})

	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected invalid-code error, got %v", err)
	}
	if called {
		t.Fatal("malformed code must never reach the backend")
	}
	if rec.counts[2] != 1 {
		t.Fatalf("expected one failure metric, got %d", rec.counts[2])
	}
}

func TestRunVerifyCodeNotReadyWithoutBackend(t *testing.T) {
	err := RunVerifyCode(context.Background(), "123456", VerifyDeps{
		Errors: VerifyErrors{NotReady: errNotReady},
	})
	if !errors.Is(err, errNotReady) {
		t.Fatalf("expected not-ready error, got %v", err)
	}
}

func TestRunVerifyCodeClearsPendingOnSuccess(t *testing.T) {
	rec := newMetricRecorder()
	cleared := false

	err := RunVerifyCode(context.Background(), "123456", VerifyDeps{
		VerifyCode: func(context.Context, string) error { return nil },
		ClearPending: func(context.Context) error {
			cleared = true
			return nil
		},
		MetricInc: rec.inc,
		Metrics:   VerifyMetrics{Success: 1, Failure: 2},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cleared {
		t.Fatal("accepted code must clear the pending flag")
	}
	if rec.counts[1] != 1 || rec.counts[2] != 0 {
		t.Fatalf("unexpected metrics: %v", rec.counts)
	}
}

func TestRunVerifyCodeKeepsPendingOnRejection(t *testing.T) {
	cleared := false

	err := RunVerifyCode(context.Background(), "123456", VerifyDeps{
		VerifyCode:   func(context.Context, string) error { return errUnavailable },
		ClearPending: func(context.Context) error { cleared = true; return nil },
	})

	if !errors.Is(err, errUnavailable) {
		t.Fatalf("expected backend error passthrough, got %v", err)
	}
	if cleared {
		t.Fatal("rejected code must leave the pending flag intact")
	}
}

func TestRunVerifyCodeClearFailureIsNonFatal(t *testing.T) {
	warned := false

	err := RunVerifyCode(context.Background(), "123456", VerifyDeps{
		VerifyCode:   func(context.Context, string) error { return nil },
		ClearPending: func(context.Context) error { return errUnavailable },
		Warn:         func(string, ...any) { warned = true },
	})

	if err != nil {
		t.Fatalf("clear failure must not fail an accepted verification: %v", err)
	}
	if !warned {
		t.Fatal("clear failure should be logged")
	}
}

func TestRunResendCodeRespectsCooldown(t *testing.T) {
	called := false

	err := RunResendCode(context.Background(), ResendDeps{
		CooldownActive: func() bool { return true },
		ResendCode:     func(context.Context) error { called = true; return nil },
		Errors:         ResendErrors{Cooldown: errCooldown},
	})

	if !errors.Is(err, errCooldown) {
		t.Fatalf("expected cooldown error, got %v", err)
	}
	if called {
		t.Fatal("resend must not fire during cooldown")
	}
}

func TestRunResendCodeEngagesCooldownOnSuccessOnly(t *testing.T) {
	rec := newMetricRecorder()
	engaged := 0
	fail := true

	deps := ResendDeps{
		CooldownActive: func() bool { return false },
		ResendCode: func(context.Context) error {
			if fail {
				return errUnavailable
			}
			return nil
		},
		EngageCooldown: func() { engaged++ },
		MetricInc:      rec.inc,
		Metrics:        ResendMetrics{Success: 3, Failure: 4},
	}

	if err := RunResendCode(context.Background(), deps); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if engaged != 0 {
		t.Fatal("failed resend must not engage the cooldown")
	}

	fail = false
	if err := RunResendCode(context.Background(), deps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engaged != 1 {
		t.Fatalf("expected one cooldown engagement, got %d", engaged)
	}
	if rec.counts[3] != 1 || rec.counts[4] != 1 {
		t.Fatalf("unexpected metrics: %v", rec.counts)
	}
}
