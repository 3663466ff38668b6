package credrot

import "sync/atomic"

// MetricID indexes the engine's in-process counters.
type MetricID uint16

const (
	// MetricIssueSuccess counts issued access+refresh pairs.
	MetricIssueSuccess MetricID = iota
	// MetricLoginFailure counts rejected primary credentials.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins denied by the attempt limiter.
	MetricLoginRateLimited
	// MetricRenewReissued counts renewals that produced a new token.
	MetricRenewReissued
	// MetricRenewNoop counts renewals inside the threshold window.
	MetricRenewNoop
	// MetricRotateSuccess counts completed rotations.
	MetricRotateSuccess
	// MetricRotateFailure counts rotations rejected for an invalid credential.
	MetricRotateFailure
	// MetricRotateRateLimited counts rotations denied by the attempt limiter.
	MetricRotateRateLimited
	// MetricReplayRejected counts rotations of an already-consumed
	// credential — the replay signal rotation exists to produce.
	MetricReplayRejected
	// MetricRevoke counts single-credential revocations.
	MetricRevoke
	// MetricRevokeAll counts subject-wide revocations.
	MetricRevokeAll
	// MetricCleanupRuns counts completed expired-row sweeps.
	MetricCleanupRuns
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters, one cache line each so concurrent
// increments on different IDs do not contend.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics returns a Metrics sink honoring cfg. A disabled sink accepts
// increments and records nothing.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether the sink records anything.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
