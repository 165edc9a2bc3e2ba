package kvauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an adapter counter or histogram.
type MetricID uint16

const (
	// MetricUserCreated counts CreateUser writes.
	MetricUserCreated MetricID = iota
	// MetricUserUpdated counts UpdateUser writes.
	MetricUserUpdated
	// MetricUserDeleted counts completed DeleteUser cascades.
	MetricUserDeleted
	// MetricAccountLinked counts LinkAccount writes.
	MetricAccountLinked
	// MetricAccountUnlinked counts UnlinkAccount purges.
	MetricAccountUnlinked
	// MetricSessionCreated counts CreateSession writes.
	MetricSessionCreated
	// MetricSessionUpdated counts UpdateSession writes.
	MetricSessionUpdated
	// MetricSessionDeleted counts DeleteSession purges.
	MetricSessionDeleted
	// MetricVerificationTokenCreated counts issued verification tokens.
	MetricVerificationTokenCreated
	// MetricVerificationTokenUsed counts consumed verification tokens.
	MetricVerificationTokenUsed
	// MetricVerificationTokenMissing counts use attempts on absent tokens.
	MetricVerificationTokenMissing
	// MetricLookupMiss counts point lookups that found nothing.
	MetricLookupMiss
	// MetricDanglingIndex counts index entries whose primary record was missing.
	MetricDanglingIndex
	// MetricCascadeIncomplete counts DeleteUser cascades that stopped part way.
	MetricCascadeIncomplete
	// MetricCascadeRetried counts cascade retry rounds.
	MetricCascadeRetried
	// MetricStoreError counts operations that failed with a store error.
	MetricStoreError
	// MetricOperationLatency is the per-operation latency histogram.
	MetricOperationLatency
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

// Metrics holds lock-free counters, one cache line each.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the latency histogram. Only MetricOperationLatency is a
// histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricOperationLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the histogram buckets.
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
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricOperationLatency].buckets[i])
		}
		s.Histograms[MetricOperationLatency] = buckets
	}

	return s
}

var histBucketBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

func bucketIndex(d time.Duration) int {
	for i, bound := range histBucketBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
