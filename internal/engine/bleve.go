package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/docdex/docdex/internal/chunker"
	errs "github.com/docdex/docdex/internal/errors"
)

// BleveEngine implements Engine on a bleve index directory.
//
// Write sessions open the index read-write under an exclusive cross-process
// file lock and buffer everything in one bleve batch. Readers hold no open
// index between calls: bleve's store takes a shared file lock even for
// read-only opens, so a reader that stayed open would block every writer in
// other processes for as long as it lived. Instead a reader pins the index
// generation it was opened at and opens the index read-only only for the
// duration of each query.
type BleveEngine struct {
	path string
}

// NewBleveEngine creates an engine for the index at path.
// The path is a directory; it need not exist yet.
func NewBleveEngine(path string) *BleveEngine {
	return &BleveEngine{path: path}
}

// Path returns the index directory.
func (e *BleveEngine) Path() string { return e.path }

// Exists reports whether an index is present at the engine's path.
// A directory without index metadata is treated as absent.
func (e *BleveEngine) Exists() bool {
	info, err := os.Stat(filepath.Join(e.path, "index_meta.json"))
	return err == nil && info.Size() > 0
}

// Create initializes a new empty index at the engine's path.
func (e *BleveEngine) Create() error {
	if e.Exists() {
		return errs.Newf(errs.ErrCodeConfigInvalid, "index already exists at %s", e.path)
	}
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return errs.IndexIOError(fmt.Sprintf("create index directory %s", e.path), err)
	}
	idx, err := bleve.New(e.path, buildIndexMapping())
	if err != nil {
		return errs.IndexIOError(fmt.Sprintf("create index at %s", e.path), err)
	}
	return idx.Close()
}

// buildIndexMapping maps chunk fields: content and title analyzed for
// search, source_document kept whole for exact-term deletes and listing,
// chunk_index numeric. All fields are stored so hits and the listing walk
// can be served from the index alone.
func buildIndexMapping() *mapping.IndexMappingImpl {
	titleField := bleve.NewTextFieldMapping()
	titleField.Store = true

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = true

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Analyzer = keyword.Name
	sourceField.Store = true
	sourceField.IncludeInAll = false

	indexField := bleve.NewNumericFieldMapping()
	indexField.Store = true
	indexField.IncludeInAll = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(FieldTitle, titleField)
	docMapping.AddFieldMappingsAt(FieldContent, contentField)
	docMapping.AddFieldMappingsAt(FieldSourceDocument, sourceField)
	docMapping.AddFieldMappingsAt(FieldChunkIndex, indexField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	// Unqualified query terms search chunk content.
	indexMapping.DefaultField = FieldContent
	return indexMapping
}

// OpenWriter opens an exclusive write session.
// Blocks until the cross-process writer lock is acquired.
func (e *BleveEngine) OpenWriter() (Writer, error) {
	if !e.Exists() {
		return nil, errs.Newf(errs.ErrCodeIndexMissing, "no index found at %s", e.path).
			WithSuggestion("run 'docdex init' first")
	}

	lock := newWriterLock(e.path)
	if err := lock.Lock(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeIndexLocked, err)
	}

	idx, err := bleve.Open(e.path)
	if err != nil {
		_ = lock.Unlock()
		return nil, errs.IndexIOError(fmt.Sprintf("open index at %s for writing", e.path), err)
	}

	return &bleveWriter{idx: idx, batch: idx.NewBatch(), lock: lock}, nil
}

// OpenReader opens a reader pinned to the index's current generation.
// The reader keeps no index handle between calls, so an idle reader never
// blocks a writer in another process.
func (e *BleveEngine) OpenReader() (Reader, error) {
	if !e.Exists() {
		return nil, errs.Newf(errs.ErrCodeIndexMissing, "no index found at %s", e.path).
			WithSuggestion("run 'docdex init' first")
	}

	gen, err := latestMod(e.path)
	if err != nil {
		return nil, errs.IndexIOError(fmt.Sprintf("stat index at %s", e.path), err)
	}
	// Probe once so a corrupt index fails here, not on the first query.
	idx, err := bleve.OpenUsing(e.path, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, errs.IndexIOError(fmt.Sprintf("open index at %s", e.path), err)
	}
	if err := idx.Close(); err != nil {
		return nil, errs.IndexIOError(fmt.Sprintf("close index at %s", e.path), err)
	}
	return &bleveReader{path: e.path, generation: gen}, nil
}

// ReopenIfChanged returns a fresh reader when a commit has landed since r
// was opened, nil when r is still current.
func (e *BleveEngine) ReopenIfChanged(r Reader) (Reader, error) {
	br, ok := r.(*bleveReader)
	if !ok {
		return nil, errs.Newf(errs.ErrCodeInternal, "reader was not opened by this engine")
	}

	gen, err := latestMod(e.path)
	if err != nil {
		return nil, errs.IndexIOError(fmt.Sprintf("stat index at %s", e.path), err)
	}
	if !gen.After(br.generation) {
		return nil, nil
	}
	return e.OpenReader()
}

// latestMod returns the newest modification time under the index directory.
// Bleve writes fresh segment and metadata files on every commit, so this is
// a cheap change signal without opening the index.
func latestMod(path string) (time.Time, error) {
	var latest time.Time
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			// Segment files can vanish mid-walk during compaction.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return latest, nil
}

// bleveWriter is a buffered write session over a bleve index.
type bleveWriter struct {
	idx   bleve.Index
	batch *bleve.Batch
	lock  *writerLock
}

// Add buffers one chunk for insertion.
func (w *bleveWriter) Add(c chunker.Chunk) error {
	doc := map[string]interface{}{
		FieldTitle:          c.Title,
		FieldContent:        c.Content,
		FieldSourceDocument: c.SourceDocument,
		FieldChunkIndex:     c.ChunkIndex,
	}
	if err := w.batch.Index(c.ID, doc); err != nil {
		return errs.IndexIOError(fmt.Sprintf("buffer chunk %s", c.ID), err)
	}
	return nil
}

// DeleteByTerm buffers deletion of every stored chunk whose field exactly
// equals value. Only chunks visible before this session's commit are found,
// which is exactly the prior-generation set a replace must remove.
func (w *bleveWriter) DeleteByTerm(field, value string) error {
	count, err := w.idx.DocCount()
	if err != nil {
		return errs.IndexIOError("count stored chunks", err)
	}
	if count == 0 {
		return nil
	}

	tq := bleve.NewTermQuery(value)
	tq.SetField(field)
	req := bleve.NewSearchRequestOptions(tq, int(count), 0, false)

	res, err := w.idx.Search(req)
	if err != nil {
		return errs.IndexIOError(fmt.Sprintf("find chunks with %s=%s", field, value), err)
	}
	for _, hit := range res.Hits {
		w.batch.Delete(hit.ID)
	}
	return nil
}

// Commit applies all buffered deletes and adds as one visible update.
func (w *bleveWriter) Commit() error {
	if w.batch.Size() == 0 {
		return nil
	}
	if err := w.idx.Batch(w.batch); err != nil {
		return errs.IndexIOError("commit batch", err)
	}
	w.batch.Reset()
	return nil
}

// Close releases the session and the writer lock. Buffered, uncommitted
// operations are discarded.
func (w *bleveWriter) Close() error {
	err := w.idx.Close()
	if uerr := w.lock.Unlock(); uerr != nil && err == nil {
		err = uerr
	}
	return err
}

// bleveReader is a generation-pinned view of a bleve index. Every call
// opens the index read-only, runs, and closes it again, so the shared file
// lock a read-only open takes is held only while a query is executing.
// Queries therefore observe the latest committed state; the pinned
// generation exists for ReopenIfChanged's change detection.
type bleveReader struct {
	path       string
	generation time.Time

	mu     sync.Mutex
	closed bool
}

// open acquires a read-only index handle for one call. The caller closes it.
func (r *bleveReader) open() (bleve.Index, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, errs.Newf(errs.ErrCodeInternal, "reader is closed")
	}
	idx, err := bleve.OpenUsing(r.path, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, errs.IndexIOError(fmt.Sprintf("open index at %s", r.path), err)
	}
	return idx, nil
}

// Search executes a ranked query-string search with content as the default
// field, returning at most topN hits with stored fields.
func (r *bleveReader) Search(ctx context.Context, raw string, topN int) (*Result, error) {
	qsq := query.NewQueryStringQuery(raw)
	parsed, err := qsq.Parse()
	if err != nil {
		return nil, errs.QueryParseError(fmt.Sprintf("parse query %q: %v", raw, err), err)
	}

	idx, err := r.open()
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	req := bleve.NewSearchRequestOptions(parsed, topN, 0, false)
	req.Fields = []string{"*"}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, errs.IndexIOError("execute search", err)
	}

	out := &Result{TotalHits: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		out.Hits = append(out.Hits, Hit{
			StoredChunk: storedChunkFromFields(hit.ID, hit.Fields),
			Score:       hit.Score,
		})
	}
	return out, nil
}

// TotalStoredCount returns the number of stored chunks.
func (r *bleveReader) TotalStoredCount() (uint64, error) {
	idx, err := r.open()
	if err != nil {
		return 0, err
	}
	defer idx.Close()
	return idx.DocCount()
}

// AllStored enumerates the stored fields of every chunk via a match-all
// walk. Enumeration order is not contractually stable.
func (r *bleveReader) AllStored(ctx context.Context) ([]StoredChunk, error) {
	idx, err := r.open()
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	count, err := idx.DocCount()
	if err != nil {
		return nil, errs.IndexIOError("count stored chunks", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	req.Fields = []string{"*"}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, errs.IndexIOError("enumerate stored chunks", err)
	}

	chunks := make([]StoredChunk, 0, len(res.Hits))
	for _, hit := range res.Hits {
		chunks = append(chunks, storedChunkFromFields(hit.ID, hit.Fields))
	}
	return chunks, nil
}

// Close retires the reader. There is no handle to release; further calls
// on the reader fail.
func (r *bleveReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// storedChunkFromFields rebuilds a StoredChunk from bleve stored fields.
// Numeric fields come back as float64.
func storedChunkFromFields(id string, fields map[string]interface{}) StoredChunk {
	c := StoredChunk{ID: id}
	if v, ok := fields[FieldTitle].(string); ok {
		c.Title = v
	}
	if v, ok := fields[FieldContent].(string); ok {
		c.Content = v
	}
	if v, ok := fields[FieldSourceDocument].(string); ok {
		c.SourceDocument = v
	}
	if v, ok := fields[FieldChunkIndex].(float64); ok {
		c.ChunkIndex = int(v)
	}
	return c
}

// Verify interface implementation.
var (
	_ Engine = (*BleveEngine)(nil)
	_ Writer = (*bleveWriter)(nil)
	_ Reader = (*bleveReader)(nil)
)
