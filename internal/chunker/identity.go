package chunker

import (
	"fmt"
	"regexp"
)

// partSuffixPattern matches the " - Part N" suffix appended to multi-chunk
// titles. Used to recover the display title during listing aggregation.
var partSuffixPattern = regexp.MustCompile(` - Part \d+$`)

// ChunkID derives the stable chunk id for a source document and 1-based
// chunk index. The id is a pure function of its inputs.
func ChunkID(sourceID string, index int) string {
	return fmt.Sprintf("%s-chunk-%03d", sourceID, index)
}

// PartTitle derives the chunk title. A document producing exactly one chunk
// keeps its title unchanged; otherwise each chunk is titled
// "{title} - Part {index}" with a 1-based index.
func PartTitle(title string, index, total int) string {
	if total == 1 {
		return title
	}
	return fmt.Sprintf("%s - Part %d", title, index)
}

// StripPartSuffix removes a trailing " - Part N" from a chunk title,
// recovering the source document title.
func StripPartSuffix(title string) string {
	return partSuffixPattern.ReplaceAllString(title, "")
}

// Assign indexes the given text chunks 1..N and derives their identities.
// It is pure: no storage or network side effects.
func Assign(sourceID, title string, parts []string) []Chunk {
	chunks := make([]Chunk, 0, len(parts))
	for i, content := range parts {
		index := i + 1
		chunks = append(chunks, Chunk{
			ID:             ChunkID(sourceID, index),
			Title:          PartTitle(title, index, len(parts)),
			Content:        content,
			SourceDocument: sourceID,
			ChunkIndex:     index,
		})
	}
	return chunks
}
