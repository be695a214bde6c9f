package sessionguard

import "sync/atomic"

// MetricID identifies one in-process counter tracked by the Guard.
type MetricID uint16

const (
	// MetricVerifySuccess counts accepted one-time codes.
	MetricVerifySuccess MetricID = iota
	// MetricVerifyFailure counts rejected or failed verification attempts.
	MetricVerifyFailure
	// MetricResendSuccess counts successful code resends.
	MetricResendSuccess
	// MetricResendFailure counts failed code resends.
	MetricResendFailure
	// MetricRateLimitDenied counts requests refused by the limiter.
	MetricRateLimitDenied
	// MetricExpiryWarning counts session-expiring warnings shown.
	MetricExpiryWarning
	// MetricRefreshSuccess counts successful token refreshes via Extend.
	MetricRefreshSuccess
	// MetricRefreshFailure counts failed token refreshes via Extend.
	MetricRefreshFailure
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free counter registry. Counters only ever increase;
// Snapshot copies them without stopping writers.
type Metrics struct {
	counters [metricIDCount]paddedCounter
}

// NewMetrics returns an empty registry.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc increments the counter for id. Unknown IDs are ignored.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricIDCount),
	}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}
