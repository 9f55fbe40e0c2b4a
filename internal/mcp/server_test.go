package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docdex/docdex/internal/chunker"
	"github.com/docdex/docdex/internal/engine"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/telemetry"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	eng := engine.NewBleveEngine(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, eng.Create())

	splitter, err := chunker.NewSplitter(250, 40)
	require.NoError(t, err)
	replacer := index.NewReplacer(splitter, nil)
	_, err = replacer.ReplaceAll(eng, []index.Entry{
		{ID: "handbook", Title: "Employee Handbook", Content: "vacation days accrue monthly for all staff"},
		{ID: "budget", Title: "Annual Budget", Content: "quarterly spending review meeting notes"},
	})
	require.NoError(t, err)

	coord, err := index.NewRefreshCoordinator(eng, time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(func() { coord.Close() })

	svc := index.NewService(coord, 10, nil)
	s, err := NewServer(svc, nil)
	require.NoError(t, err)
	return s
}

func resultText(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok, "tool result should be text content")
	return tc.Text
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(nil, nil)
	require.Error(t, err)
}

func TestSearchHandler_ReturnsRankedHits(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.searchHandler(context.Background(), nil, SearchInput{Query: "vacation"})
	require.NoError(t, err)

	var payload struct {
		Query     string `json:"query"`
		TotalHits uint64 `json:"total_hits"`
		Results   []struct {
			ID             string  `json:"id"`
			Title          string  `json:"title"`
			Content        string  `json:"content"`
			SourceDocument string  `json:"source_document"`
			ChunkIndex     int     `json:"chunk_index"`
			Score          float64 `json:"score"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))

	assert.Equal(t, "vacation", payload.Query)
	assert.Equal(t, uint64(1), payload.TotalHits)
	require.Len(t, payload.Results, 1)

	hit := payload.Results[0]
	assert.Equal(t, "handbook-chunk-001", hit.ID)
	assert.Equal(t, "Employee Handbook", hit.Title)
	assert.Equal(t, "handbook", hit.SourceDocument)
	assert.Equal(t, 1, hit.ChunkIndex)
	assert.Greater(t, hit.Score, 0.0)
}

func TestSearchHandler_EmptyQueryFailsCall(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.searchHandler(context.Background(), nil, SearchInput{Query: "  "})
	require.Error(t, err)
}

func TestSearchHandler_MalformedQueryReturnsErrorPayload(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.searchHandler(context.Background(), nil, SearchInput{Query: "title:\"unterminated"})
	require.NoError(t, err, "parse failures are payloads, not call failures")

	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	assert.NotEmpty(t, payload.Error)
	assert.Equal(t, "ERR_301_QUERY_PARSE", payload.Code)

	// A valid query right after still works.
	res, _, err = s.searchHandler(context.Background(), nil, SearchInput{Query: "quarterly"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "budget-chunk-001")
}

func TestSearchHandler_NoResultsPayload(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.searchHandler(context.Background(), nil, SearchInput{Query: "nonexistentterm"})
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, `"total_hits": 0`)
	assert.Contains(t, text, `"results": []`)
}

func TestListDocumentsHandler_ReturnsListing(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.listDocumentsHandler(context.Background(), nil, ListDocumentsInput{})
	require.NoError(t, err)

	var payload struct {
		TotalDocuments int `json:"total_documents"`
		TotalChunks    int `json:"total_chunks"`
		Documents      []struct {
			SourceDocument string `json:"source_document"`
			Title          string `json:"title"`
			ChunkCount     int    `json:"chunk_count"`
			MaxChunkIndex  int    `json:"max_chunk_index"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))

	assert.Equal(t, 2, payload.TotalDocuments)
	assert.Equal(t, 2, payload.TotalChunks)
	require.Len(t, payload.Documents, 2)
	assert.Equal(t, "budget", payload.Documents[0].SourceDocument)
	assert.Equal(t, "handbook", payload.Documents[1].SourceDocument)
}

func TestServer_CloseFlushesTelemetry(t *testing.T) {
	s := newTestServer(t)

	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	store, err := telemetry.OpenStore(dbPath)
	require.NoError(t, err)
	metrics := telemetry.NewQueryMetrics(telemetry.DefaultConfig())
	s.SetTelemetry(metrics, store)

	_, _, err = s.searchHandler(context.Background(), nil, SearchInput{Query: "vacation"})
	require.NoError(t, err)

	// Close flushes the collected metrics and closes the store.
	require.NoError(t, s.Close())

	reopened, err := telemetry.OpenStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	report, err := reopened.Report()
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.TotalQueries)
}
