package route

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nao1215/linkaudit/internal/model"
)

// DefaultRouteDir is the route root relative to the project root.
const DefaultRouteDir = "app"

// DefaultRouteFiles are the filenames that mark a directory as a route.
var DefaultRouteFiles = []string{"page.tsx", "page.ts", "layout.tsx", "route.ts"}

// Index builds route sets from a route tree.
type Index struct {
	routeFiles map[string]bool
	logger     *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithRouteFiles replaces the set of route-defining filenames.
func WithRouteFiles(names []string) Option {
	return func(ix *Index) {
		if len(names) == 0 {
			return
		}
		ix.routeFiles = make(map[string]bool, len(names))
		for _, n := range names {
			ix.routeFiles[n] = true
		}
	}
}

// WithLogger sets the logger used for walk diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) {
		ix.logger = logger
	}
}

// NewIndex creates an Index recognizing DefaultRouteFiles unless overridden.
func NewIndex(opts ...Option) *Index {
	ix := &Index{logger: slog.Default()}
	WithRouteFiles(DefaultRouteFiles)(ix)

	for _, opt := range opts {
		opt(ix)
	}

	return ix
}

// Build walks routeRoot and returns every route found.
// A missing route root yields an empty set and no error. Entries that
// cannot be read are logged and skipped.
func (ix *Index) Build(routeRoot string) model.RouteSet {
	var routes model.RouteSet

	info, err := os.Stat(routeRoot)
	if err != nil || !info.IsDir() {
		ix.logger.Warn("route root not found, no routes derived", "dir", routeRoot)
		return routes
	}

	walkErr := filepath.WalkDir(routeRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			ix.logger.Warn("skipping unreadable entry", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !ix.routeFiles[d.Name()] {
			return nil
		}

		rel, err := filepath.Rel(routeRoot, filepath.Dir(p))
		if err != nil {
			ix.logger.Warn("cannot compute route", "path", p, "error", err)
			return nil
		}

		route := FromDir(filepath.ToSlash(rel))
		ix.logger.Debug("route found", "route", route, "file", p)
		routes.Add(route)
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.SkipDir) {
		ix.logger.Warn("route walk stopped early", "dir", routeRoot, "error", walkErr)
	}

	return routes
}

// FromDir converts a slash-separated directory path, relative to the route
// root, into a route. "." is the root route. Grouping segments are removed
// together with their separator.
func FromDir(rel string) string {
	if rel == "" || rel == "." {
		return "/"
	}

	segments := strings.Split(rel, "/")
	kept := segments[:0]
	for _, seg := range segments {
		if seg == "" || seg == "." || IsGroupSegment(seg) {
			continue
		}
		kept = append(kept, seg)
	}

	return path.Join("/", strings.Join(kept, "/"))
}

// IsGroupSegment reports whether a path segment is a grouping segment,
// i.e. wrapped in parentheses.
func IsGroupSegment(seg string) bool {
	return len(seg) >= 2 && strings.HasPrefix(seg, "(") && strings.HasSuffix(seg, ")")
}

// Build derives routes with the default route-defining filenames.
func Build(routeRoot string) model.RouteSet {
	return NewIndex().Build(routeRoot)
}
