package extract

import (
	"sort"
	"strings"

	"github.com/nao1215/linkaudit/internal/model"
)

// Extractor applies an ordered list of patterns to file contents.
// It holds no per-file state and is safe for concurrent use.
type Extractor struct {
	patterns []Pattern
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExtraPatterns appends patterns after the built-in ones.
func WithExtraPatterns(patterns ...Pattern) Option {
	return func(e *Extractor) {
		e.patterns = append(e.patterns, patterns...)
	}
}

// New creates an Extractor using DefaultPatterns.
func New(opts ...Option) *Extractor {
	e := &Extractor{patterns: DefaultPatterns()}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Patterns returns the names of the patterns in application order.
func (e *Extractor) Patterns() []string {
	names := make([]string, len(e.patterns))
	for i, p := range e.patterns {
		names[i] = p.Name
	}
	return names
}

// Extract returns every link occurrence in content. file is the path
// relative to the project root and is recorded verbatim on each occurrence.
// Occurrences are grouped by pattern, in pattern order, then by position.
func (e *Extractor) Extract(content, file string) []model.LinkOccurrence {
	lines := newLineIndex(content)

	var out []model.LinkOccurrence
	for _, p := range e.patterns {
		for _, m := range p.matches(content) {
			out = append(out, model.LinkOccurrence{
				Link: m.target,
				File: file,
				Line: lines.lineAt(m.start),
			})
		}
	}
	return out
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex struct {
	// newlines holds the offset of every '\n' in ascending order.
	newlines []int
}

// newLineIndex records the position of every newline in content.
func newLineIndex(content string) lineIndex {
	var idx lineIndex
	for off := 0; ; {
		i := strings.IndexByte(content[off:], '\n')
		if i < 0 {
			break
		}
		idx.newlines = append(idx.newlines, off+i)
		off += i + 1
	}
	return idx
}

// lineAt returns the number of newlines before offset, plus one.
func (idx lineIndex) lineAt(offset int) int {
	return sort.SearchInts(idx.newlines, offset) + 1
}
