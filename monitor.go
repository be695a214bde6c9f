package sessionguard

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenMonitor keeps an authenticated session alive without unplanned
// logouts. It polls the provider's token expiry on a fixed interval and
// raises a single EventSessionExpiring warning per threshold crossing; the
// host answers by calling [TokenMonitor.Extend], which performs a
// deduplicated refresh.
//
// The monitor never forces a logout: a token that expires outright is the
// API layer's expired-session handling to deal with.
type TokenMonitor struct {
	provider Provider
	notify   *notifyDispatcher
	metrics  *Metrics
	cfg      MonitorConfig
	now      func() time.Time

	mu         sync.Mutex
	warned     bool
	refreshing bool

	stop     chan struct{}
	stopOnce sync.Once
	started  bool
}

func newTokenMonitor(provider Provider, notify *notifyDispatcher, metrics *Metrics, cfg MonitorConfig, now func() time.Time) *TokenMonitor {
	if now == nil {
		now = time.Now
	}
	return &TokenMonitor{
		provider: provider,
		notify:   notify,
		metrics:  metrics,
		cfg:      cfg,
		now:      now,
		stop:     make(chan struct{}),
	}
}

// Start runs an immediate check, then rechecks every CheckInterval until
// [TokenMonitor.Stop]. Start is idempotent.
func (m *TokenMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.check(ctx)

	go func() {
		ticker := time.NewTicker(m.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check(ctx)
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the polling goroutine. Safe to call more than once.
func (m *TokenMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// check is one poll cycle. Latch transitions:
//
//	unauthenticated        -> latch cleared, nothing shown
//	expiry unknown         -> no-op (latch untouched)
//	remaining > threshold  -> latch cleared (refresh happened elsewhere)
//	remaining <= 0         -> nothing; expiry handling is external
//	0 < remaining <= thr   -> warn once, set latch
func (m *TokenMonitor) check(ctx context.Context) {
	if !m.provider.Authenticated() {
		m.mu.Lock()
		m.warned = false
		m.mu.Unlock()
		return
	}

	expiresAt, ok := m.provider.TokenExpiry()
	if !ok {
		return
	}

	remaining := time.Duration(expiresAt-m.now().UnixMilli()) * time.Millisecond

	m.mu.Lock()
	if remaining > m.cfg.WarningThreshold {
		m.warned = false
		m.mu.Unlock()
		return
	}
	if remaining <= 0 || m.warned {
		m.mu.Unlock()
		return
	}
	m.warned = true
	m.mu.Unlock()

	visible := remaining
	if visible > m.cfg.WarningThreshold {
		visible = m.cfg.WarningThreshold
	}

	m.metrics.Inc(MetricExpiryWarning)
	m.notify.Emit(ctx, Notification{
		Event:      EventSessionExpiring,
		Remaining:  remaining,
		VisibleFor: visible,
	})
}

// Extend refreshes the access token in answer to an expiry warning.
// Concurrent calls coalesce: while a refresh is in flight, further calls
// return nil without issuing a second request. On success the warning
// latch clears so a later threshold crossing warns again.
func (m *TokenMonitor) Extend(ctx context.Context) error {
	m.mu.Lock()
	if m.refreshing {
		m.mu.Unlock()
		return nil
	}
	m.refreshing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.refreshing = false
		m.mu.Unlock()
	}()

	expiresAt, err := m.provider.RefreshAccessToken(ctx)
	if err != nil {
		m.metrics.Inc(MetricRefreshFailure)
		return fmt.Errorf("%w: %v", ErrRefreshUnavailable, err)
	}

	m.mu.Lock()
	m.warned = false
	m.mu.Unlock()

	m.metrics.Inc(MetricRefreshSuccess)
	m.notify.Emit(ctx, Notification{
		Event:     EventSessionRenewed,
		ExpiresAt: expiresAt,
	})
	return nil
}
