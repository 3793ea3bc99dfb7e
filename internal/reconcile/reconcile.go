// Package reconcile checks internal links against the application's routes.
//
// A link is valid when its path, with query string and fragment removed,
// equals a known route or continues a known route after a "/" separator.
// The separator check means route "/users" validates "/users/42" but not
// "/users42". Matching is textual: a dynamic route directory such as
// "/items/[id]" only validates links that literally start with
// "/items/[id]/".
package reconcile

import (
	"strings"

	"github.com/nao1215/linkaudit/internal/model"
)

// DefaultAllowlist contains paths that are always considered valid.
var DefaultAllowlist = []string{"/", "/api", "/api/auth"}

// Result is the outcome of reconciling a set of internal links.
type Result struct {
	// Valid contains links that matched a route or the allowlist.
	Valid []model.LinkOccurrence

	// Broken contains links that matched nothing.
	Broken []model.LinkOccurrence

	// Findings contains one critical finding per broken link.
	Findings []model.Finding
}

// Reconciler validates internal links against a route set.
type Reconciler struct {
	allowlist map[string]bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithAllowlist adds paths that are always valid, on top of DefaultAllowlist.
func WithAllowlist(paths ...string) Option {
	return func(r *Reconciler) {
		for _, p := range paths {
			r.allowlist[p] = true
		}
	}
}

// New creates a Reconciler with DefaultAllowlist.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{allowlist: make(map[string]bool)}
	for _, p := range DefaultAllowlist {
		r.allowlist[p] = true
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Reconcile checks every internal occurrence against routes.
func (r *Reconciler) Reconcile(internal []model.LinkOccurrence, routes model.RouteSet) Result {
	var res Result
	sorted := routes.Sorted()

	for _, occ := range internal {
		clean := CleanPath(occ.Link)

		if r.allowlist[clean] || matchesAny(clean, sorted) {
			res.Valid = append(res.Valid, occ)
			continue
		}

		res.Broken = append(res.Broken, occ)
		res.Findings = append(res.Findings,
			model.NewFinding(model.FindingBrokenRoute, occ, "route not found: "+clean))
	}

	return res
}

// Reconcile checks internal links with the default allowlist.
func Reconcile(internal []model.LinkOccurrence, routes model.RouteSet) Result {
	return New().Reconcile(internal, routes)
}

// CleanPath strips the query string and fragment from link and makes the
// result absolute.
func CleanPath(link string) string {
	if i := strings.IndexByte(link, '?'); i >= 0 {
		link = link[:i]
	}
	if i := strings.IndexByte(link, '#'); i >= 0 {
		link = link[:i]
	}
	if !strings.HasPrefix(link, "/") {
		link = "/" + link
	}
	return link
}

// Matches reports whether clean equals route or starts with route + "/".
func Matches(clean, route string) bool {
	return clean == route || strings.HasPrefix(clean, route+"/")
}

// matchesAny reports whether clean matches one of routes.
func matchesAny(clean string, routes []string) bool {
	for _, route := range routes {
		if Matches(clean, route) {
			return true
		}
	}
	return false
}
