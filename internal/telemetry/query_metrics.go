// Package telemetry collects local query pattern metrics for docdex.
// Everything stays on disk next to the index; nothing is reported anywhere.
package telemetry

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent represents a single search query for telemetry recording.
type QueryEvent struct {
	Query       string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult returns true if this query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// Config configures collector capacities.
type Config struct {
	// TopTermsCapacity bounds the term-frequency cache.
	TopTermsCapacity int
	// ZeroResultCapacity bounds the zero-result query ring.
	ZeroResultCapacity int
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:   256,
		ZeroResultCapacity: 100,
	}
}

// QueryMetrics collects in-memory query telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu           sync.Mutex
	totalQueries int64
	zeroResults  []string
	zeroCap      int
	topTerms     *lru.Cache[string, int64]
	latency      map[LatencyBucket]int64
}

// NewQueryMetrics creates a collector.
func NewQueryMetrics(cfg Config) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = DefaultConfig().TopTermsCapacity
	}
	if cfg.ZeroResultCapacity <= 0 {
		cfg.ZeroResultCapacity = DefaultConfig().ZeroResultCapacity
	}
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	return &QueryMetrics{
		zeroCap:  cfg.ZeroResultCapacity,
		topTerms: topTerms,
		latency:  make(map[LatencyBucket]int64),
	}
}

// Record records one query event.
func (m *QueryMetrics) Record(e QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	m.latency[LatencyToBucket(e.Latency)]++

	for _, term := range strings.Fields(strings.ToLower(e.Query)) {
		if len(term) < 3 {
			continue
		}
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if e.IsZeroResult() {
		if len(m.zeroResults) >= m.zeroCap {
			// Ring: drop the oldest.
			m.zeroResults = m.zeroResults[1:]
		}
		m.zeroResults = append(m.zeroResults, e.Query)
	}
}

// Snapshot is a point-in-time copy of collected metrics.
type Snapshot struct {
	TotalQueries      int64
	ZeroResultQueries []string
	TopTerms          map[string]int64
	Latency           map[LatencyBucket]int64
}

// Snapshot returns a copy of the current metrics.
func (m *QueryMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		TotalQueries:      m.totalQueries,
		ZeroResultQueries: append([]string(nil), m.zeroResults...),
		TopTerms:          make(map[string]int64, m.topTerms.Len()),
		Latency:           make(map[LatencyBucket]int64, len(m.latency)),
	}
	for _, term := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Get(term); ok {
			snap.TopTerms[term] = count
		}
	}
	for bucket, count := range m.latency {
		snap.Latency[bucket] = count
	}
	return snap
}

// FlushTo persists the current metrics under today's date and resets the
// counters that were persisted. Term frequencies are upserted cumulatively
// in the store, so the in-memory cache is cleared too.
func (m *QueryMetrics) FlushTo(store *Store) error {
	snap := m.Snapshot()
	if snap.TotalQueries == 0 && len(snap.ZeroResultQueries) == 0 {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	if err := store.SaveSnapshot(date, snap); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalQueries = 0
	m.zeroResults = nil
	m.topTerms.Purge()
	m.latency = make(map[LatencyBucket]int64)
	return nil
}
