package sessionguard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/campuskit/sessionguard/internal/flows"
	"github.com/google/uuid"
)

// otpDigits is the fixed number of entry slots.
const otpDigits = flows.CodeLength

// FlowState is the verification flow's current phase.
type FlowState uint8

const (
	// StateAwaitingHydration holds all decisions until the persisted
	// pending-session flag has been restored from storage.
	StateAwaitingHydration FlowState = iota
	// StateNoPendingSession is terminal: no challenge is outstanding and
	// the host should redirect to the login entry point.
	StateNoPendingSession
	// StateActive accepts digit entry, paste, resend, and cancel.
	StateActive
	// StateSubmitting means an assembled code is in flight.
	StateSubmitting
	// StateResending means a resend request is in flight.
	StateResending
	// StateVerified is terminal: the session is established.
	StateVerified
	// StateCancelled is terminal: the user backed out and the pending
	// flag was cleared.
	StateCancelled
	// StateClosed is terminal: the hosting view unmounted.
	StateClosed
)

// String implements fmt.Stringer.
func (s FlowState) String() string {
	switch s {
	case StateAwaitingHydration:
		return "awaiting-hydration"
	case StateNoPendingSession:
		return "no-pending-session"
	case StateActive:
		return "active"
	case StateSubmitting:
		return "submitting"
	case StateResending:
		return "resending"
	case StateVerified:
		return "verified"
	case StateCancelled:
		return "cancelled"
	default:
		return "closed"
	}
}

// VerificationFlow drives the 6-digit code entry to a race-free
// completion. One flow exists per mounted verification view; create it
// with [Guard.NewVerificationFlow] and release it with
// [VerificationFlow.Close].
//
// The flow starts in StateAwaitingHydration and only decides between
// "redirect to login" and "show the form" once the persisted store
// confirms its initial load; deciding earlier would flash a false
// redirect before storage is read.
type VerificationFlow struct {
	id    string
	guard *Guard
	cfg   OTPConfig

	mu        sync.Mutex
	state     FlowState
	digits    [otpDigits]string
	focus     int
	cooldown  int
	submitted bool
	flowErr   error
	gen       uint64

	stop     chan struct{}
	stopOnce sync.Once

	// async runs in-flight work; tests replace it to run synchronously.
	async func(func())
	now   func() time.Time
}

// NewVerificationFlow creates a flow for the current client context. The
// redirect-or-activate decision is deferred until hydration completes.
func (g *Guard) NewVerificationFlow(ctx context.Context) *VerificationFlow {
	f := &VerificationFlow{
		id:    uuid.NewString(),
		guard: g,
		cfg:   g.config.OTP,
		state: StateAwaitingHydration,
		stop:  make(chan struct{}),
		async: func(fn func()) { go fn() },
		now:   g.now,
	}

	g.pending.OnHydrationFinished(f.resolveHydration)

	if f.cfg.CooldownTick > 0 {
		go f.runCooldownTicker()
	}

	return f
}

// resolveHydration runs exactly once, after the persisted store finished
// loading. Only then is "no pending session" a trustworthy observation.
func (f *VerificationFlow) resolveHydration() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateAwaitingHydration {
		return
	}
	if _, err := f.guard.pending.Pending(); err != nil {
		f.state = StateNoPendingSession
		return
	}
	f.state = StateActive
}

// ID identifies this flow instance.
func (f *VerificationFlow) ID() string {
	return f.id
}

// State returns the current phase.
func (f *VerificationFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Digits returns a copy of the entry slots.
func (f *VerificationFlow) Digits() [otpDigits]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.digits
}

// Focus returns the slot the UI should focus.
func (f *VerificationFlow) Focus() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focus
}

// ResendCooldown returns the seconds until resend becomes available.
func (f *VerificationFlow) ResendCooldown() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cooldown
}

// Err returns the error the UI should display: the flow's own transient
// error takes precedence over the Guard's shared session error slot.
func (f *VerificationFlow) Err() error {
	f.mu.Lock()
	flowErr := f.flowErr
	f.mu.Unlock()

	if flowErr != nil {
		return flowErr
	}
	return f.guard.SessionError()
}

// SubmitDigit places a single numeral into slot. Non-numeric input is
// rejected without mutating state; an empty value clears the slot.
// Filling the last empty slot auto-submits the assembled code exactly
// once per completed fill.
func (f *VerificationFlow) SubmitDigit(ctx context.Context, slot int, value string) error {
	if slot < 0 || slot >= otpDigits {
		return nil
	}

	f.mu.Lock()
	switch f.state {
	case StateActive:
	case StateAwaitingHydration:
		f.mu.Unlock()
		return ErrHydrationPending
	case StateSubmitting, StateResending:
		f.mu.Unlock()
		return nil
	default:
		f.mu.Unlock()
		return ErrFlowClosed
	}

	if value == "" {
		f.digits[slot] = ""
		f.focus = slot
		f.submitted = false
		f.mu.Unlock()
		return nil
	}
	if len(value) != 1 || value[0] < '0' || value[0] > '9' {
		f.mu.Unlock()
		return nil
	}

	f.digits[slot] = value
	if slot < otpDigits-1 {
		f.focus = slot + 1
	}
	f.maybeAutoSubmitLocked(ctx)
	f.mu.Unlock()
	return nil
}

// Backspace handles a delete keypress in slot: a filled slot is cleared
// in place, an empty slot moves focus to the previous one.
func (f *VerificationFlow) Backspace(slot int) {
	if slot < 0 || slot >= otpDigits {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateActive {
		return
	}

	if f.digits[slot] != "" {
		f.digits[slot] = ""
		f.focus = slot
	} else if slot > 0 {
		f.focus = slot - 1
	}
	f.submitted = false
}

// HandlePaste strips non-digit characters from text, truncates to the
// slot count, and fills from the first slot. A full 6-digit paste
// auto-submits through the same single-shot path as manual entry; a
// partial paste replaces the board, clearing the trailing slots so a
// previous fill cannot linger behind the pasted prefix.
func (f *VerificationFlow) HandlePaste(ctx context.Context, text string) error {
	f.mu.Lock()
	switch f.state {
	case StateActive:
	case StateAwaitingHydration:
		f.mu.Unlock()
		return ErrHydrationPending
	case StateSubmitting, StateResending:
		f.mu.Unlock()
		return nil
	default:
		f.mu.Unlock()
		return ErrFlowClosed
	}

	var digits []byte
	for i := 0; i < len(text) && len(digits) < otpDigits; i++ {
		if text[i] >= '0' && text[i] <= '9' {
			digits = append(digits, text[i])
		}
	}
	if len(digits) == 0 {
		f.mu.Unlock()
		return nil
	}

	for i := 0; i < len(digits); i++ {
		f.digits[i] = string(digits[i])
	}
	if len(digits) < otpDigits {
		for i := len(digits); i < otpDigits; i++ {
			f.digits[i] = ""
		}
		f.focus = len(digits)
		f.submitted = false
	} else {
		f.focus = otpDigits - 1
	}
	f.maybeAutoSubmitLocked(ctx)
	f.mu.Unlock()
	return nil
}

// maybeAutoSubmitLocked decides completion against the digits just
// written under this same lock hold, never a stale snapshot. The
// submitted latch guarantees one submission per completed fill; it
// rearms only when the fill breaks.
func (f *VerificationFlow) maybeAutoSubmitLocked(ctx context.Context) {
	code, complete := f.assembleLocked()
	if !complete {
		f.submitted = false
		return
	}
	if f.submitted {
		return
	}
	f.submitted = true
	f.state = StateSubmitting
	f.flowErr = nil
	gen := f.gen
	f.async(func() { f.submit(ctx, code, gen) })
}

func (f *VerificationFlow) assembleLocked() (string, bool) {
	var b strings.Builder
	b.Grow(otpDigits)
	for i := 0; i < otpDigits; i++ {
		if f.digits[i] == "" {
			return "", false
		}
		b.WriteString(f.digits[i])
	}
	return b.String(), true
}

func (f *VerificationFlow) submit(ctx context.Context, code string, gen uint64) {
	err := flows.RunVerifyCode(ctx, code, flows.VerifyDeps{
		VerifyCode:   f.guard.provider.VerifyCode,
		ClearPending: f.guard.pending.Clear,
		MetricInc:    f.guard.metricIncRaw,
		Warn:         f.guard.warnf,
		Metrics: flows.VerifyMetrics{
			Success: int(MetricVerifySuccess),
			Failure: int(MetricVerifyFailure),
		},
		Errors: flows.VerifyErrors{
			NotReady:    ErrGuardNotReady,
			Invalid:     ErrVerificationInvalid,
			Unavailable: ErrVerificationUnavailable,
		},
	})

	f.mu.Lock()
	if f.gen != gen || f.state != StateSubmitting {
		// Superseded by cancel or close; a late result must not be applied.
		f.mu.Unlock()
		return
	}
	if err != nil {
		f.state = StateActive
		f.flowErr = err
		f.mu.Unlock()
		return
	}
	f.state = StateVerified
	f.flowErr = nil
	f.mu.Unlock()

	f.stopTicker()
}

// Resend requests a fresh code. Available only when the cooldown has
// fully elapsed; on success the cooldown engages, all digits clear, and
// focus returns to the first slot. A failed resend leaves the cooldown
// disengaged for an immediate retry.
func (f *VerificationFlow) Resend(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case StateActive:
	case StateAwaitingHydration:
		f.mu.Unlock()
		return ErrHydrationPending
	case StateSubmitting, StateResending:
		f.mu.Unlock()
		return nil
	default:
		f.mu.Unlock()
		return ErrFlowClosed
	}
	if f.cooldown > 0 {
		f.mu.Unlock()
		return ErrResendCooldown
	}
	f.state = StateResending
	gen := f.gen
	f.mu.Unlock()

	f.async(func() { f.resend(ctx, gen) })
	return nil
}

func (f *VerificationFlow) resend(ctx context.Context, gen uint64) {
	err := flows.RunResendCode(ctx, flows.ResendDeps{
		ResendCode: f.guard.provider.ResendCode,
		MetricInc:  f.guard.metricIncRaw,
		Metrics: flows.ResendMetrics{
			Success: int(MetricResendSuccess),
			Failure: int(MetricResendFailure),
		},
		Errors: flows.ResendErrors{
			NotReady: ErrGuardNotReady,
			Cooldown: ErrResendCooldown,
		},
	})

	f.mu.Lock()
	if f.gen != gen || f.state != StateResending {
		f.mu.Unlock()
		return
	}
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrResendUnavailable, err)
		f.state = StateActive
		f.flowErr = wrapped
		f.mu.Unlock()
		f.guard.notify.Emit(ctx, Notification{Event: EventResendFailed, Err: wrapped})
		return
	}

	f.state = StateActive
	f.flowErr = nil
	f.cooldown = int(f.cfg.ResendCooldown / time.Second)
	f.digits = [otpDigits]string{}
	f.focus = 0
	f.submitted = false
	f.mu.Unlock()

	f.guard.notify.Emit(ctx, Notification{Event: EventCodeResent})
}

// Cancel backs out of verification: the pending two-factor flag is
// cleared and control returns to the login entry point. Results of any
// in-flight verify or resend arriving afterwards are dropped.
func (f *VerificationFlow) Cancel(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case StateVerified, StateCancelled, StateClosed:
		f.mu.Unlock()
		return nil
	}
	f.gen++
	f.state = StateCancelled
	f.flowErr = nil
	f.mu.Unlock()

	f.stopTicker()
	return f.guard.pending.Clear(ctx)
}

// Close releases the flow on unmount: timers stop and the flow-scoped
// error is cleared so it cannot leak into a later verification attempt.
func (f *VerificationFlow) Close() {
	f.mu.Lock()
	f.gen++
	f.flowErr = nil
	switch f.state {
	case StateVerified, StateCancelled:
	default:
		f.state = StateClosed
	}
	f.mu.Unlock()

	f.stopTicker()
}

// tick advances the resend cooldown by one second.
func (f *VerificationFlow) tick() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cooldown > 0 {
		f.cooldown--
	}
}

func (f *VerificationFlow) runCooldownTicker() {
	ticker := time.NewTicker(f.cfg.CooldownTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			f.tick()
		case <-f.stop:
			return
		}
	}
}

func (f *VerificationFlow) stopTicker() {
	f.stopOnce.Do(func() {
		close(f.stop)
	})
}
