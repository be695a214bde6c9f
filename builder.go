package sessionguard

import (
	"errors"
	"log"
	"time"

	"github.com/campuskit/sessionguard/internal/rate"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Guard]. Zero or one call to each With* method,
// then Build exactly once.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	provider Provider
	sink     NotifySink
	clientID string
	now      func() time.Time
	warn     func(string, ...any)

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies the client for the persisted pending-session store.
// Without it the flag lives in process memory only and hydration
// completes immediately.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithProvider supplies the backend identity provider's client API.
// Required.
func (b *Builder) WithProvider(p Provider) *Builder {
	b.provider = p
	return b
}

// WithNotifySink supplies the destination for user-facing notifications
// (toasts). Defaults to [NoOpSink].
func (b *Builder) WithNotifySink(sink NotifySink) *Builder {
	b.sink = sink
	return b
}

// WithClientID sets the default client-context identifier used to key
// the persisted pending-session flag. Defaults to "default".
func (b *Builder) WithClientID(id string) *Builder {
	b.clientID = id
	return b
}

// WithClock injects the time source. Tests inject a fake clock here.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithWarnLogger injects the warning logger. Defaults to log.Printf.
func (b *Builder) WithWarnLogger(fn func(string, ...any)) *Builder {
	b.warn = fn
	return b
}

// Build validates the configuration and wires the Guard. The Builder is
// single-use.
func (b *Builder) Build() (*Guard, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.provider == nil {
		return nil, errors.New("provider is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}
	b.built = true

	now := b.now
	if now == nil {
		now = time.Now
	}
	warn := b.warn
	if warn == nil {
		warn = log.Printf
	}
	clientID := b.clientID
	if clientID == "" {
		clientID = "default"
	}

	var backend pendingBackend
	if b.redis != nil {
		backend = newStoreBackend(b.redis, now)
	}

	metrics := NewMetrics()
	notify := newNotifyDispatcher(b.config.Notify, b.sink)

	g := &Guard{
		config:   b.config,
		provider: b.provider,
		limiter: rate.New(
			rate.Config{MaxRequests: b.config.RateLimit.MaxRequests, Window: b.config.RateLimit.Window},
			rate.Config{MaxRequests: b.config.RateLimit.AuthMaxRequests, Window: b.config.RateLimit.AuthWindow},
			b.config.RateLimit.AuthPathMarker,
			now,
		),
		pending: newPendingState(backend, clientID, b.config.OTP.PendingTTL, warn),
		notify:  notify,
		metrics: metrics,
		warnf:   warn,
		now:     now,
	}
	g.monitor = newTokenMonitor(b.provider, notify, metrics, b.config.Monitor, now)

	return g, nil
}
