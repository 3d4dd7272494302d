package chunker

import (
	"strings"

	"docrag/internal/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 50
)

// DefaultSeparators are tried in order: line break, then character level.
// The empty string means "cut anywhere", so the trailing space is only reached
// when a caller removes it.
var DefaultSeparators = []string{"\n", "", " "}

// RecursiveChunker splits text into overlapping chunks of at most size characters,
// preferring to cut after the highest-priority separator that fits.
type RecursiveChunker struct {
	size       int
	overlap    int
	separators [][]rune
}

// Span is a piece of a segment with its rune offset.
type Span struct {
	Offset int
	Text   string
}

func NewRecursiveChunker(size, overlap int, separators []string) *RecursiveChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	seps := make([][]rune, len(separators))
	for i, s := range separators {
		seps[i] = []rune(s)
	}
	return &RecursiveChunker{size: size, overlap: overlap, separators: seps}
}

// Size returns the configured maximum chunk length in characters.
func (c *RecursiveChunker) Size() int { return c.size }

// Overlap returns the number of characters shared by consecutive chunks.
func (c *RecursiveChunker) Overlap() int { return c.overlap }

// Chunk splits every segment of the document independently.
func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, seg := range document.Segments {
		for _, sp := range c.Split(seg.Text) {
			chunks = append(chunks, domain.Chunk{
				Source: document.Path,
				Page:   seg.Page,
				Offset: sp.Offset,
				Index:  len(chunks),
				Text:   sp.Text,
			})
		}
	}
	return chunks, nil
}

// Split cuts text into spans. Each span after the first starts with the last
// overlap characters of the previous one.
func (c *RecursiveChunker) Split(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	var spans []Span
	start := 0
	for {
		if len(runes)-start <= c.size {
			return append(spans, Span{Offset: start, Text: string(runes[start:])})
		}
		end := c.cut(runes, start)
		spans = append(spans, Span{Offset: start, Text: string(runes[start:end])})
		if end >= len(runes) {
			return spans
		}
		start = end - c.overlap
	}
}

// cut returns the exclusive end of the chunk beginning at start.
// The end always lies past start+overlap so the next chunk makes progress.
func (c *RecursiveChunker) cut(runes []rune, start int) int {
	limit := start + c.size
	floor := start + c.overlap
	for _, sep := range c.separators {
		if len(sep) == 0 {
			return limit
		}
		if end := lastSeparatorEnd(runes, start, floor, limit, sep); end > 0 {
			return end
		}
	}
	// Nothing fits inside the window: keep the atomic unit whole.
	return c.nextSeparatorEnd(runes, limit)
}

// lastSeparatorEnd finds the largest end in (floor, limit] where sep ends.
func lastSeparatorEnd(runes []rune, start, floor, limit int, sep []rune) int {
	for end := limit; end > floor; end-- {
		from := end - len(sep)
		if from < start {
			break
		}
		if hasPrefixAt(runes, from, sep) {
			return end
		}
	}
	return -1
}

func (c *RecursiveChunker) nextSeparatorEnd(runes []rune, from int) int {
	for i := from; i < len(runes); i++ {
		for _, sep := range c.separators {
			if len(sep) > 0 && hasPrefixAt(runes, i, sep) {
				return i + len(sep)
			}
		}
	}
	return len(runes)
}

func hasPrefixAt(runes []rune, at int, sep []rune) bool {
	if at+len(sep) > len(runes) {
		return false
	}
	for i, r := range sep {
		if runes[at+i] != r {
			return false
		}
	}
	return true
}
