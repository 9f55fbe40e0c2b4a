// Package chunker splits document text into overlapping word-bounded chunks
// and derives stable chunk identities for indexing.
package chunker

import (
	"strings"

	errs "github.com/docdex/docdex/internal/errors"
)

// Default chunk window parameters, in words.
const (
	DefaultMaxWords     = 250
	DefaultOverlapWords = 40
)

// Chunk is the unit of storage and retrieval: a contiguous, possibly
// overlapping, word-bounded slice of a source document's text.
type Chunk struct {
	// ID is {source}-chunk-{index}, with the index zero-padded to 3 digits.
	ID string
	// Title is the source title, suffixed with " - Part N" when the source
	// produced more than one chunk.
	Title string
	// Content is the chunk text.
	Content string
	// SourceDocument is the caller-supplied source document id.
	SourceDocument string
	// ChunkIndex is the 1-based position within the source's chunk sequence.
	ChunkIndex int
}

// Splitter splits text into overlapping windows of whole words.
type Splitter struct {
	maxWords     int
	overlapWords int
}

// NewSplitter creates a Splitter.
// overlapWords must be strictly less than maxWords; anything else would make
// the stride non-positive and the split non-terminating.
func NewSplitter(maxWords, overlapWords int) (*Splitter, error) {
	if maxWords <= 0 {
		return nil, errs.Newf(errs.ErrCodeBadChunkWindow, "max words must be positive, got %d", maxWords)
	}
	if overlapWords < 0 {
		return nil, errs.Newf(errs.ErrCodeBadChunkWindow, "overlap words must not be negative, got %d", overlapWords)
	}
	if overlapWords >= maxWords {
		return nil, errs.Newf(errs.ErrCodeBadChunkWindow,
			"overlap words (%d) must be less than max words (%d)", overlapWords, maxWords)
	}
	return &Splitter{maxWords: maxWords, overlapWords: overlapWords}, nil
}

// NewDefaultSplitter creates a Splitter with the default window parameters.
func NewDefaultSplitter() *Splitter {
	s, err := NewSplitter(DefaultMaxWords, DefaultOverlapWords)
	if err != nil {
		// Defaults are valid by construction.
		panic(err)
	}
	return s
}

// Split splits text into overlapping word-bounded chunks.
//
// Words are runs of non-whitespace. Text that fits in one window is returned
// as a single chunk equal to the input, whitespace untouched. Longer text is
// windowed: each chunk takes up to maxWords words, joined with single spaces,
// and the cursor advances by maxWords-overlapWords. Emission stops once the
// latest chunk reaches the end of the word sequence, so no trailing chunk
// smaller than the overlap window is produced.
//
// Whitespace-only text yields no chunks.
func (s *Splitter) Split(text string) []string {
	words := strings.Fields(text)
	n := len(words)
	if n == 0 {
		return nil
	}
	if n <= s.maxWords {
		return []string{text}
	}

	stride := s.maxWords - s.overlapWords
	var chunks []string
	cursor := 0
	for {
		take := s.maxWords
		if rest := n - cursor; rest < take {
			take = rest
		}
		chunks = append(chunks, strings.Join(words[cursor:cursor+take], " "))

		next := cursor + stride
		if next >= n-s.overlapWords {
			break
		}
		cursor = next
	}
	return chunks
}

// MaxWords returns the configured window size.
func (s *Splitter) MaxWords() int { return s.maxWords }

// OverlapWords returns the configured overlap size.
func (s *Splitter) OverlapWords() int { return s.overlapWords }
