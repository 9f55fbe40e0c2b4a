package index

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/docdex/docdex/internal/chunker"
	"github.com/docdex/docdex/internal/engine"
)

// fakeEngine is an in-memory engine.Engine for exercising the replacer and
// refresh coordinator without touching disk.
type fakeEngine struct {
	mu sync.Mutex

	// committed is the visible chunk set, keyed by chunk id.
	committed map[string]chunker.Chunk
	// generation increments on every commit.
	generation int

	openWriterErr error
	openReaderErr error
	reopenErr     error
	commitErr     error

	readersOpened int
	reopenCalls   int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{committed: make(map[string]chunker.Chunk)}
}

func (e *fakeEngine) Exists() bool { return true }
func (e *fakeEngine) Create() error { return nil }

func (e *fakeEngine) OpenWriter() (engine.Writer, error) {
	if e.openWriterErr != nil {
		return nil, e.openWriterErr
	}
	return &fakeWriter{eng: e}, nil
}

func (e *fakeEngine) OpenReader() (engine.Reader, error) {
	if e.openReaderErr != nil {
		return nil, e.openReaderErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readersOpened++
	return e.snapshotLocked(), nil
}

func (e *fakeEngine) ReopenIfChanged(r engine.Reader) (engine.Reader, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reopenCalls++
	if e.reopenErr != nil {
		return nil, e.reopenErr
	}
	fr := r.(*fakeReader)
	if fr.generation == e.generation {
		return nil, nil
	}
	e.readersOpened++
	return e.snapshotLocked(), nil
}

func (e *fakeEngine) snapshotLocked() *fakeReader {
	chunks := make([]chunker.Chunk, 0, len(e.committed))
	for _, c := range e.committed {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ID < chunks[j].ID })
	return &fakeReader{generation: e.generation, chunks: chunks}
}

// visible returns the committed chunk ids in sorted order.
func (e *fakeEngine) visible() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.committed))
	for id := range e.committed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type bufferedOp struct {
	del   bool
	id    string
	chunk chunker.Chunk
}

type fakeWriter struct {
	eng    *fakeEngine
	buf    []bufferedOp
	closed bool
}

func (w *fakeWriter) Add(c chunker.Chunk) error {
	w.buf = append(w.buf, bufferedOp{chunk: c})
	return nil
}

// DeleteByTerm resolves matching ids against committed chunks at call time,
// as the real engine does. Chunks buffered earlier in the same session are
// not visible to it.
func (w *fakeWriter) DeleteByTerm(field, value string) error {
	w.eng.mu.Lock()
	defer w.eng.mu.Unlock()
	for id, c := range w.eng.committed {
		if field == engine.FieldSourceDocument && c.SourceDocument == value {
			w.buf = append(w.buf, bufferedOp{del: true, id: id})
		}
	}
	return nil
}

func (w *fakeWriter) Commit() error {
	if w.eng.commitErr != nil {
		return w.eng.commitErr
	}
	w.eng.mu.Lock()
	defer w.eng.mu.Unlock()
	for _, op := range w.buf {
		if op.del {
			delete(w.eng.committed, op.id)
			continue
		}
		w.eng.committed[op.chunk.ID] = op.chunk
	}
	w.buf = nil
	w.eng.generation++
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	w.buf = nil
	return nil
}

type fakeReader struct {
	generation int
	chunks     []chunker.Chunk
	searchErr  error
	closed     bool
}

func (r *fakeReader) Search(_ context.Context, query string, topN int) (*engine.Result, error) {
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	res := &engine.Result{}
	for _, c := range r.chunks {
		if query != "" && !strings.Contains(c.Content, query) {
			continue
		}
		res.TotalHits++
		if len(res.Hits) < topN {
			res.Hits = append(res.Hits, engine.Hit{
				StoredChunk: storedFromChunk(c),
				Score:       1.0 / float64(len(res.Hits)+1),
			})
		}
	}
	return res, nil
}

func (r *fakeReader) TotalStoredCount() (uint64, error) {
	return uint64(len(r.chunks)), nil
}

func (r *fakeReader) AllStored(_ context.Context) ([]engine.StoredChunk, error) {
	out := make([]engine.StoredChunk, 0, len(r.chunks))
	for _, c := range r.chunks {
		out = append(out, storedFromChunk(c))
	}
	return out, nil
}

func (r *fakeReader) Close() error {
	if r.closed {
		return errors.New("reader closed twice")
	}
	r.closed = true
	return nil
}

func storedFromChunk(c chunker.Chunk) engine.StoredChunk {
	return engine.StoredChunk{
		ID:             c.ID,
		Title:          c.Title,
		Content:        c.Content,
		SourceDocument: c.SourceDocument,
		ChunkIndex:     c.ChunkIndex,
	}
}

var (
	_ engine.Engine = (*fakeEngine)(nil)
	_ engine.Writer = (*fakeWriter)(nil)
	_ engine.Reader = (*fakeReader)(nil)
)
