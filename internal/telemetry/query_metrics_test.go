package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	assert.Equal(t, BucketP10, LatencyToBucket(3*time.Millisecond))
	assert.Equal(t, BucketP50, LatencyToBucket(10*time.Millisecond))
	assert.Equal(t, BucketP50, LatencyToBucket(49*time.Millisecond))
	assert.Equal(t, BucketP100, LatencyToBucket(75*time.Millisecond))
	assert.Equal(t, BucketP500, LatencyToBucket(200*time.Millisecond))
	assert.Equal(t, BucketP1000, LatencyToBucket(2*time.Second))
}

func TestQueryMetrics_Record_CountsAndTerms(t *testing.T) {
	m := NewQueryMetrics(DefaultConfig())

	m.Record(QueryEvent{Query: "Leave Policy", ResultCount: 3, Latency: 5 * time.Millisecond})
	m.Record(QueryEvent{Query: "leave balance", ResultCount: 1, Latency: 20 * time.Millisecond})

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.TopTerms["leave"], "terms are case-folded")
	assert.Equal(t, int64(1), snap.TopTerms["policy"])
	assert.Equal(t, int64(1), snap.Latency[BucketP10])
	assert.Equal(t, int64(1), snap.Latency[BucketP50])
}

func TestQueryMetrics_Record_SkipsShortTerms(t *testing.T) {
	m := NewQueryMetrics(DefaultConfig())

	m.Record(QueryEvent{Query: "go to HR office", ResultCount: 1})

	snap := m.Snapshot()
	assert.NotContains(t, snap.TopTerms, "go")
	assert.NotContains(t, snap.TopTerms, "to")
	assert.NotContains(t, snap.TopTerms, "hr")
	assert.Contains(t, snap.TopTerms, "office")
}

func TestQueryMetrics_Record_ZeroResultRing(t *testing.T) {
	m := NewQueryMetrics(Config{ZeroResultCapacity: 3})

	for i := 0; i < 5; i++ {
		m.Record(QueryEvent{Query: fmt.Sprintf("miss %d", i), ResultCount: 0})
	}

	snap := m.Snapshot()
	require.Len(t, snap.ZeroResultQueries, 3)
	assert.Equal(t, []string{"miss 2", "miss 3", "miss 4"}, snap.ZeroResultQueries,
		"ring keeps the most recent queries")
}

func TestQueryMetrics_Snapshot_IsACopy(t *testing.T) {
	m := NewQueryMetrics(DefaultConfig())
	m.Record(QueryEvent{Query: "first query", ResultCount: 0})

	snap := m.Snapshot()
	m.Record(QueryEvent{Query: "second query", ResultCount: 0})

	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Len(t, snap.ZeroResultQueries, 1)
}

func TestQueryMetrics_FlushTo_PersistsAndResets(t *testing.T) {
	m := NewQueryMetrics(DefaultConfig())
	store := openTestStore(t)

	m.Record(QueryEvent{Query: "vacation policy details", ResultCount: 2, Latency: 8 * time.Millisecond})
	m.Record(QueryEvent{Query: "ghost query", ResultCount: 0, Latency: 60 * time.Millisecond})

	require.NoError(t, m.FlushTo(store))

	snap := m.Snapshot()
	assert.Zero(t, snap.TotalQueries)
	assert.Empty(t, snap.ZeroResultQueries)
	assert.Empty(t, snap.TopTerms)

	report, err := store.Report()
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.TotalQueries)
	assert.Contains(t, report.ZeroResultQueries, "ghost query")
}

func TestQueryMetrics_FlushTo_EmptyIsNoOp(t *testing.T) {
	m := NewQueryMetrics(DefaultConfig())
	store := openTestStore(t)

	require.NoError(t, m.FlushTo(store))

	report, err := store.Report()
	require.NoError(t, err)
	assert.Zero(t, report.TotalQueries)
}
