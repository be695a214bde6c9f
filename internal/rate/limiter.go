package rate

import (
	"strings"
	"sync"
	"time"
)

// Config holds the quota for one endpoint class.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Decision is the limiter's verdict for one request. RetryAfter is set
// only on denial, rounded up to whole seconds.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type window struct {
	count   int
	resetAt int64 // epoch ms
}

// Limiter enforces per-endpoint fixed-window quotas in process memory.
// Endpoint keys whose path contains the auth marker use the stricter
// config; all others use the default config.
type Limiter struct {
	defaults   Config
	strict     Config
	authMarker string
	now        func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// New creates a [Limiter]. now defaults to time.Now.
func New(defaults, strict Config, authMarker string, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		defaults:   defaults,
		strict:     strict,
		authMarker: authMarker,
		now:        now,
		windows:    make(map[string]*window),
	}
}

// Check decides whether a request to endpointKey may proceed and records
// it against the key's open window. The query string is stripped so
// parameterized calls to the same logical route share one counter.
func (l *Limiter) Check(endpointKey string) Decision {
	key := normalizeKey(endpointKey)
	cfg := l.configFor(key)
	nowMs := l.now().UnixMilli()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || nowMs >= w.resetAt {
		// Expired windows are replaced, never merged.
		l.windows[key] = &window{
			count:   1,
			resetAt: nowMs + cfg.Window.Milliseconds(),
		}
		return Decision{Allowed: true}
	}

	if w.count < cfg.MaxRequests {
		w.count++
		return Decision{Allowed: true}
	}

	retryMs := w.resetAt - nowMs
	return Decision{
		Allowed:    false,
		RetryAfter: time.Duration((retryMs+999)/1000) * time.Second,
	}
}

// Reset clears all windows. Used for full application reload and test
// isolation.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
}

func (l *Limiter) configFor(key string) Config {
	if l.authMarker != "" && strings.Contains(key, l.authMarker) {
		return l.strict
	}
	return l.defaults
}

func normalizeKey(endpointKey string) string {
	if i := strings.IndexByte(endpointKey, '?'); i >= 0 {
		return endpointKey[:i]
	}
	return endpointKey
}
