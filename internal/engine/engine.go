// Package engine wraps the inverted-index collaborator behind narrow
// interfaces: write sessions that buffer deletes and adds until a single
// commit, and generation-pinned readers that are swapped, never mutated,
// to acknowledge new writes.
package engine

import (
	"context"

	"github.com/docdex/docdex/internal/chunker"
)

// Stored field names. These are also the JSON field names on the tool
// surface, so they must not change.
const (
	FieldTitle          = "title"
	FieldContent        = "content"
	FieldSourceDocument = "source_document"
	FieldChunkIndex     = "chunk_index"
)

// StoredChunk is a chunk as read back from the index.
type StoredChunk struct {
	ID             string
	Title          string
	Content        string
	SourceDocument string
	ChunkIndex     int
}

// Hit is a ranked search hit with its stored fields.
type Hit struct {
	StoredChunk
	Score float64
}

// Result is a ranked result set.
type Result struct {
	TotalHits uint64
	Hits      []Hit
}

// Engine opens write sessions and readers over one index.
type Engine interface {
	// Exists reports whether an index is present at the engine's path.
	Exists() bool
	// Create initializes a new empty index. Fails if one already exists.
	Create() error
	// OpenWriter opens an exclusive write session. The session's deletes
	// and adds become visible to new readers atomically at Commit.
	OpenWriter() (Writer, error)
	// OpenReader opens a reader pinned to the current index generation.
	// An idle reader must not block writers in other processes.
	OpenReader() (Reader, error)
	// ReopenIfChanged returns a fresh reader when the index has changed
	// since r was opened, or nil when r is still current. The caller owns
	// closing whichever reader it keeps.
	ReopenIfChanged(r Reader) (Reader, error)
}

// Writer is a buffered write session over the index.
type Writer interface {
	// Add buffers one chunk for insertion.
	Add(c chunker.Chunk) error
	// DeleteByTerm buffers deletion of every stored chunk whose field
	// exactly equals value.
	DeleteByTerm(field, value string) error
	// Commit applies all buffered operations as one visible update.
	// The session may continue buffering after a commit.
	Commit() error
	// Close releases the session and its writer lock without committing
	// anything still buffered.
	Close() error
}

// Reader is a view over the index pinned to the generation observed when
// it was opened. Queries see at least that generation; the pin drives
// change detection for reader swaps.
type Reader interface {
	// Search executes a ranked query returning at most topN hits with
	// stored fields. A malformed query yields a query-parse error.
	Search(ctx context.Context, query string, topN int) (*Result, error)
	// TotalStoredCount returns the number of stored chunks.
	TotalStoredCount() (uint64, error)
	// AllStored enumerates the stored fields of every chunk.
	AllStored(ctx context.Context) ([]StoredChunk, error)
	// Close releases the reader.
	Close() error
}
