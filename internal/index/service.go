package index

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/docdex/docdex/internal/chunker"
	"github.com/docdex/docdex/internal/telemetry"
)

// SearchResult is one ranked hit on the tool surface.
// Field names are part of the wire contract; do not rename.
type SearchResult struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	SourceDocument string  `json:"source_document"`
	ChunkIndex     int     `json:"chunk_index,omitempty"`
	Score          float64 `json:"score"`
}

// SearchOutput is the search tool payload.
type SearchOutput struct {
	Query     string         `json:"query"`
	TotalHits uint64         `json:"total_hits"`
	Results   []SearchResult `json:"results"`
}

// DocumentSummary aggregates one source document's stored chunks.
type DocumentSummary struct {
	SourceDocument string `json:"source_document"`
	Title          string `json:"title"`
	ChunkCount     int    `json:"chunk_count"`
	MaxChunkIndex  int    `json:"max_chunk_index"`
}

// ListingOutput is the list_documents tool payload.
type ListingOutput struct {
	TotalDocuments int               `json:"total_documents"`
	TotalChunks    int               `json:"total_chunks"`
	Documents      []DocumentSummary `json:"documents"`
}

// Service serves chunk-level search and document-listing queries through
// the refresh coordinator's active reader. Every query, successful or not,
// signals the coordinator afterwards: searching never mutates the index,
// but it is the natural moment to catch up on external writes.
type Service struct {
	coord      *RefreshCoordinator
	metrics    *telemetry.QueryMetrics
	maxResults int
	logger     *slog.Logger
}

// NewService creates a Service. maxResults <= 0 selects 10.
func NewService(coord *RefreshCoordinator, maxResults int, logger *slog.Logger) *Service {
	if maxResults <= 0 {
		maxResults = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{coord: coord, maxResults: maxResults, logger: logger}
}

// SetMetrics attaches an optional query telemetry collector.
func (s *Service) SetMetrics(m *telemetry.QueryMetrics) {
	s.metrics = m
}

// Coordinator returns the refresh coordinator serving this service.
func (s *Service) Coordinator() *RefreshCoordinator {
	return s.coord
}

// Search executes a ranked query against the active reader and shapes the
// top hits into the tool payload. A malformed query surfaces as a
// query-parse error for the caller to present; the shape of later valid
// queries is unaffected.
func (s *Service) Search(ctx context.Context, query string) (*SearchOutput, error) {
	defer s.coord.SignalChange()

	start := time.Now()
	res, err := s.coord.Reader().Search(ctx, query, s.maxResults)
	if err != nil {
		s.logger.Warn("search failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return nil, err
	}

	out := &SearchOutput{
		Query:     query,
		TotalHits: res.TotalHits,
		Results:   make([]SearchResult, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		out.Results = append(out.Results, SearchResult{
			ID:             hit.ID,
			Title:          hit.Title,
			Content:        hit.Content,
			SourceDocument: hit.SourceDocument,
			ChunkIndex:     hit.ChunkIndex,
			Score:          hit.Score,
		})
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.Record(telemetry.QueryEvent{
			Query:       query,
			ResultCount: len(out.Results),
			Latency:     elapsed,
			Timestamp:   start,
		})
	}
	s.logger.Info("search completed",
		slog.String("query", query),
		slog.Uint64("total_hits", out.TotalHits),
		slog.Duration("duration", elapsed))
	return out, nil
}

// ListDocuments folds over all stored chunks and aggregates per-source
// summaries, sorted by source document id. The display title comes from the
// first chunk seen for each source, with any part suffix stripped; when a
// source somehow carries inconsistent titles, enumeration order decides
// which one wins.
func (s *Service) ListDocuments(ctx context.Context) (*ListingOutput, error) {
	defer s.coord.SignalChange()

	chunks, err := s.coord.Reader().AllStored(ctx)
	if err != nil {
		s.logger.Warn("listing failed", slog.String("error", err.Error()))
		return nil, err
	}

	bySource := make(map[string]*DocumentSummary)
	for _, c := range chunks {
		sum, ok := bySource[c.SourceDocument]
		if !ok {
			bySource[c.SourceDocument] = &DocumentSummary{
				SourceDocument: c.SourceDocument,
				Title:          chunker.StripPartSuffix(c.Title),
				ChunkCount:     1,
				MaxChunkIndex:  c.ChunkIndex,
			}
			continue
		}
		sum.ChunkCount++
		if c.ChunkIndex > sum.MaxChunkIndex {
			sum.MaxChunkIndex = c.ChunkIndex
		}
	}

	out := &ListingOutput{
		TotalDocuments: len(bySource),
		TotalChunks:    len(chunks),
		Documents:      make([]DocumentSummary, 0, len(bySource)),
	}
	for _, sum := range bySource {
		out.Documents = append(out.Documents, *sum)
	}
	sort.Slice(out.Documents, func(i, j int) bool {
		return out.Documents[i].SourceDocument < out.Documents[j].SourceDocument
	})

	s.logger.Info("listing completed",
		slog.Int("total_documents", out.TotalDocuments),
		slog.Int("total_chunks", out.TotalChunks))
	return out, nil
}
