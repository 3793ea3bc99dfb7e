package extract

import (
	"fmt"
	"regexp"
)

// Pattern captures one syntactic convention for embedding a link target.
// The regular expression must have exactly one capture group: the target.
type Pattern struct {
	// Name identifies the pattern in logs and errors.
	Name string

	re *regexp.Regexp
}

// NewPattern compiles a case-insensitive pattern.
// It returns an error if the expression is invalid or does not have
// exactly one capture group.
func NewPattern(name, expr string) (Pattern, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", name, err)
	}
	if re.NumSubexp() != 1 {
		return Pattern{}, fmt.Errorf("pattern %q must have exactly one capture group, has %d", name, re.NumSubexp())
	}
	return Pattern{Name: name, re: re}, nil
}

// mustPattern is NewPattern for the built-in patterns.
func mustPattern(name, expr string) Pattern {
	p, err := NewPattern(name, expr)
	if err != nil {
		panic(err)
	}
	return p
}

// match is one pattern hit: the captured target and the offset where the
// whole match begins.
type match struct {
	target string
	start  int
}

// matches returns every non-overlapping match of the pattern in content.
func (p Pattern) matches(content string) []match {
	locs := p.re.FindAllStringSubmatchIndex(content, -1)
	out := make([]match, 0, len(locs))
	for _, loc := range locs {
		// loc[0] is the match start, loc[2]:loc[3] the capture group.
		if loc[2] < 0 {
			continue
		}
		out = append(out, match{target: content[loc[2]:loc[3]], start: loc[0]})
	}
	return out
}

// Built-in patterns, applied in this order.
var (
	// HrefPattern matches href="..." attributes.
	HrefPattern = mustPattern("href", `href=["']([^"']+)["']`)

	// ToPattern matches to="..." attributes used by router link components.
	ToPattern = mustPattern("to", `to=["']([^"']+)["']`)

	// LinkComponentPattern matches href inside a <Link ...> component tag.
	LinkComponentPattern = mustPattern("link_component", `<Link[^>]+href=["']([^"']+)["']`)

	// MarkdownPattern matches Markdown [text](target) links.
	MarkdownPattern = mustPattern("markdown", `\[.*?\]\(([^)]+)\)`)

	// URLKeyPattern matches url: "..." object keys.
	URLKeyPattern = mustPattern("url_key", `url:\s*["']([^"']+)["']`)
)

// DefaultPatterns returns the built-in patterns in application order.
func DefaultPatterns() []Pattern {
	return []Pattern{
		HrefPattern,
		ToPattern,
		LinkComponentPattern,
		MarkdownPattern,
		URLKeyPattern,
	}
}
