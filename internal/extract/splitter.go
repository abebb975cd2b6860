package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/midiacode/contentchat/internal/domain"
)

const (
	// DefaultChunkSize is the target maximum chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the shared length between consecutive chunks.
	DefaultChunkOverlap = 200
)

var collapseNewlines = regexp.MustCompile(`\s*\n\s*`)

// Splitter turns normalized text into overlapping chunks, preferring newline
// boundaries and falling back to hard cuts.
type Splitter struct {
	size    int
	overlap int
}

func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		return nil, fmt.Errorf("extract: overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split produces ordered chunks from raw text. Invoking it repeatedly with
// identical input produces identical output.
func (s *Splitter) Split(text string) ([]domain.Chunk, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	sp := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.size),
		textsplitter.WithChunkOverlap(s.overlap),
		textsplitter.WithSeparators([]string{"\n", " ", ""}),
	)
	segments, err := sp.SplitText(trimmed)
	if err != nil {
		return nil, fmt.Errorf("extract: split text: %w", err)
	}
	chunks := make([]domain.Chunk, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{Text: segment, Ordinal: len(chunks)})
	}
	return chunks, nil
}

// normalizeWhitespace collapses newlines and their surrounding whitespace
// into single spaces so broken lines join back into sentences.
func normalizeWhitespace(text string) string {
	return collapseNewlines.ReplaceAllString(text, " ")
}
