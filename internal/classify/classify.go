// Package classify assigns every extracted link to exactly one category.
//
// Rules are evaluated top to bottom and the first match wins:
//  1. "", "#" and "javascript:void(0)" are empty placeholders.
//  2. http:// and https:// links are external.
//  3. Links starting with "/" are internal.
//  4. ./, ../, mailto: and tel: links are relative or special.
//  5. Anything else is treated as internal.
//
// The fallback sends unrecognized shapes, including protocol-relative
// "//host/path" links, to reconciliation.
package classify

import (
	"strings"

	"github.com/nao1215/linkaudit/internal/model"
)

// emptyLinks are placeholders that navigate nowhere.
var emptyLinks = map[string]bool{
	"":                   true,
	"#":                  true,
	"javascript:void(0)": true,
}

// externalPrefixes mark absolute web URLs.
var externalPrefixes = []string{"http://", "https://"}

// relativeOrSpecialPrefixes mark links that are valid by construction.
var relativeOrSpecialPrefixes = []string{"./", "../", "mailto:", "tel:"}

// Classify returns the category of a link target.
func Classify(link string) model.Category {
	switch {
	case emptyLinks[link]:
		return model.CategoryEmpty
	case hasAnyPrefix(link, externalPrefixes):
		return model.CategoryExternal
	case strings.HasPrefix(link, "/"):
		return model.CategoryInternal
	case hasAnyPrefix(link, relativeOrSpecialPrefixes):
		return model.CategoryRelativeOrSpecial
	default:
		return model.CategoryInternal
	}
}

// Partition classifies every occurrence into the result's buckets.
func Partition(result *model.AuditResult, occs []model.LinkOccurrence) {
	for _, occ := range occs {
		result.Add(Classify(occ.Link), occ)
	}
}

// hasAnyPrefix reports whether s starts with one of prefixes.
func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
