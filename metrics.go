package novelAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram in a [MetricsSnapshot].
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that established an authenticated session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts wrong-password and unknown-email logins alike.
	MetricLoginFailure
	// MetricLoginLocked counts logins refused inside a lockout window.
	MetricLoginLocked
	// MetricLoginRateLimited counts logins refused by the per-IP throttle.
	MetricLoginRateLimited
	MetricChallengeFailure
	// MetricLockoutTriggered counts failures that opened a new lockout window.
	MetricLockoutTriggered
	MetricForcedRotation
	MetricCSRFRejected
	MetricSessionCreated
	MetricSessionExpired
	MetricLogout
	MetricPasswordChangeSuccess
	MetricPasswordChangeInvalidCurrent
	MetricPasswordChangePolicyReject
	MetricPasswordChangeReuseReject
	MetricPremiumChanged
	MetricUnauthorizedAccess
	// MetricCredentialAttemptLatency is the only histogram: time spent in one
	// credential attempt, including hash verification and CAS retries.
	MetricCredentialAttemptLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters, one cache line each, plus
// 8-bucket latency histograms. A nil or disabled Metrics records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histograms holds
// bucket counts for the bounds 5, 10, 25, 50, 100, 250, 500 ms and +Inf.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into histogram id. Only histogram-backed IDs accept
// observations.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !isHistogram(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the histograms when latency is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for id := MetricID(0); id < metricIDCount; id++ {
			if !isHistogram(id) {
				continue
			}
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricCredentialAttemptLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
