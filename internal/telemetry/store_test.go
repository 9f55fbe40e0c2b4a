package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveSnapshot_Roundtrip(t *testing.T) {
	store := openTestStore(t)

	snap := Snapshot{
		TotalQueries:      5,
		ZeroResultQueries: []string{"missing one", "missing two"},
		TopTerms:          map[string]int64{"policy": 3, "leave": 2},
		Latency:           map[LatencyBucket]int64{BucketP10: 4, BucketP100: 1},
	}
	require.NoError(t, store.SaveSnapshot("2026-08-29", snap))

	report, err := store.Report()
	require.NoError(t, err)

	assert.Equal(t, int64(5), report.TotalQueries)
	assert.Equal(t, []string{"missing two", "missing one"}, report.ZeroResultQueries,
		"most recent first")
	assert.Equal(t, int64(4), report.Latency[BucketP10])
	assert.Equal(t, int64(1), report.Latency[BucketP100])

	terms := make(map[string]int64)
	for _, tc := range report.TopTerms {
		terms[tc.Term] = tc.Count
	}
	assert.Equal(t, int64(3), terms["policy"])
	assert.Equal(t, int64(2), terms["leave"])
}

func TestStore_SaveSnapshot_AccumulatesAcrossFlushes(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveSnapshot("2026-08-28", Snapshot{
		TotalQueries: 2,
		TopTerms:     map[string]int64{"budget": 1},
	}))
	require.NoError(t, store.SaveSnapshot("2026-08-29", Snapshot{
		TotalQueries: 3,
		TopTerms:     map[string]int64{"budget": 4},
	}))

	report, err := store.Report()
	require.NoError(t, err)
	assert.Equal(t, int64(5), report.TotalQueries)

	require.NotEmpty(t, report.TopTerms)
	assert.Equal(t, "budget", report.TopTerms[0].Term)
	assert.Equal(t, int64(5), report.TopTerms[0].Count)
}

func TestStore_SaveSnapshot_SameDayUpserts(t *testing.T) {
	store := openTestStore(t)

	day := time.Now().Format("2006-01-02")
	require.NoError(t, store.SaveSnapshot(day, Snapshot{TotalQueries: 1}))
	require.NoError(t, store.SaveSnapshot(day, Snapshot{TotalQueries: 2}))

	report, err := store.Report()
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.TotalQueries)
}

func TestStore_Report_EmptyDatabase(t *testing.T) {
	store := openTestStore(t)

	report, err := store.Report()
	require.NoError(t, err)
	assert.Zero(t, report.TotalQueries)
	assert.Empty(t, report.TopTerms)
	assert.Empty(t, report.ZeroResultQueries)
}

func TestStore_ZeroResultQueriesTrimmed(t *testing.T) {
	store := openTestStore(t)

	var queries []string
	for i := 0; i < 120; i++ {
		queries = append(queries, time.Now().Format("150405.000")+"-q")
	}
	require.NoError(t, store.SaveSnapshot("2026-08-29", Snapshot{
		TotalQueries:      120,
		ZeroResultQueries: queries,
	}))

	report, err := store.Report()
	require.NoError(t, err)
	// Report shows the 10 most recent; the table itself is capped at 100.
	assert.Len(t, report.ZeroResultQueries, 10)
}
