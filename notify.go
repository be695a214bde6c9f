package sessionguard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// NotifyEvent classifies a user-facing notification.
type NotifyEvent uint8

const (
	// EventSessionExpiring says the access token is inside the warning
	// threshold; the host should show an "extend session" affordance for
	// at most VisibleFor.
	EventSessionExpiring NotifyEvent = iota
	// EventSessionRenewed confirms a successful token refresh.
	EventSessionRenewed
	// EventCodeResent confirms that a fresh one-time code was issued.
	EventCodeResent
	// EventResendFailed says the resend attempt failed; the cooldown was
	// not engaged and the user may retry immediately.
	EventResendFailed
)

// Notification is delivered asynchronously to the host's [NotifySink].
// Only the fields relevant to the Event are populated.
type Notification struct {
	Event      NotifyEvent
	Remaining  time.Duration
	VisibleFor time.Duration
	ExpiresAt  int64
	Err        error
}

// NotifySink receives notifications from the Guard's dispatcher. Emit is
// called from a single dispatcher goroutine; a slow sink delays delivery
// but never blocks the Guard when DropIfFull is set.
type NotifySink interface {
	Notify(ctx context.Context, n Notification)
}

// NoOpSink discards all notifications.
type NoOpSink struct{}

// Notify implements [NotifySink].
func (NoOpSink) Notify(context.Context, Notification) {}

type notifyDispatcher struct {
	cfg       NotifyConfig
	sink      NotifySink
	ch        chan Notification
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newNotifyDispatcher(cfg NotifyConfig, sink NotifySink) *notifyDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &notifyDispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Notification, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *notifyDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.ch:
			d.sink.Notify(context.Background(), n)
		case <-d.done:
			// Drain what was already queued before exiting.
			for {
				select {
				case n := <-d.ch:
					d.sink.Notify(context.Background(), n)
				default:
					return
				}
			}
		}
	}
}

// Emit queues a notification. With DropIfFull set, a full buffer drops
// the notification and bumps the dropped counter instead of blocking the
// emitting state machine.
func (d *notifyDispatcher) Emit(ctx context.Context, n Notification) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- n:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- n:
	case <-ctx.Done():
	case <-d.done:
	}
}

func (d *notifyDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *notifyDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
