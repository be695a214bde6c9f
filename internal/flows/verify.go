package flows

import "context"

// CodeLength is the fixed length of a verification code.
const CodeLength = 6

// VerifyMetrics carries metric IDs needed by the verify flow.
type VerifyMetrics struct {
	Success int
	Failure int
}

// VerifyErrors carries host-level sentinel errors used by the verify flow.
type VerifyErrors struct {
	NotReady    error
	Invalid     error
	Unavailable error
}

// VerifyDeps captures verify-flow dependencies.
type VerifyDeps struct {
	VerifyCode   func(context.Context, string) error
	ClearPending func(context.Context) error

	MetricInc func(int)
	Warn      func(string, ...any)

	Metrics VerifyMetrics
	Errors  VerifyErrors
}

// RunVerifyCode validates and submits an assembled code. On acceptance the
// pending two-factor flag is cleared; a clear failure is logged but does
// not undo an already-established session. A rejected code leaves the
// pending flag intact so the user may retry.
func RunVerifyCode(ctx context.Context, code string, deps VerifyDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.VerifyCode == nil {
		return deps.Errors.NotReady
	}

	if !ValidCode(code) {
		deps.MetricInc(deps.Metrics.Failure)
		return deps.Errors.Invalid
	}

	if err := deps.VerifyCode(ctx, code); err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		return err
	}

	if deps.ClearPending != nil {
		if err := deps.ClearPending(ctx); err != nil {
			deps.Warn("sessionguard: clearing pending session after verification failed: %v", err)
		}
	}

	deps.MetricInc(deps.Metrics.Success)
	return nil
}

// ResendMetrics carries metric IDs needed by the resend flow.
type ResendMetrics struct {
	Success int
	Failure int
}

// ResendErrors carries host-level sentinel errors used by the resend flow.
type ResendErrors struct {
	NotReady error
	Cooldown error
}

// ResendDeps captures resend-flow dependencies.
type ResendDeps struct {
	CooldownActive func() bool
	ResendCode     func(context.Context) error
	EngageCooldown func()

	MetricInc func(int)

	Metrics ResendMetrics
	Errors  ResendErrors
}

// RunResendCode requests a fresh code. The cooldown engages only on
// success; a failed resend leaves the action immediately retryable.
func RunResendCode(ctx context.Context, deps ResendDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.ResendCode == nil {
		return deps.Errors.NotReady
	}

	if deps.CooldownActive != nil && deps.CooldownActive() {
		return deps.Errors.Cooldown
	}

	if err := deps.ResendCode(ctx); err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		return err
	}

	if deps.EngageCooldown != nil {
		deps.EngageCooldown()
	}
	deps.MetricInc(deps.Metrics.Success)
	return nil
}

// ValidCode reports whether code is exactly CodeLength numerals.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
