package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nao1215/linkaudit/internal/model"
)

// DefaultExtensions are the file extensions scanned for links.
var DefaultExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".md", ".json"}

// DefaultExcludes are path fragments that exclude a file from scanning.
var DefaultExcludes = []string{"node_modules", ".git", ".next", "dist"}

// DefaultConcurrency is the number of files read in parallel.
const DefaultConcurrency = 8

// ErrInvalidUTF8 is reported when a file is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("content is not valid UTF-8")

// File is a decoded source file.
type File struct {
	// Path is relative to the project root and uses forward slashes.
	Path string

	// Content is the decoded text.
	Content string
}

// Reader enumerates and reads project files.
type Reader struct {
	extensions  map[string]bool
	excludes    []string
	concurrency int
	logger      *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithExtensions replaces the scanned extensions. Extensions without a
// leading dot are accepted.
func WithExtensions(exts ...string) Option {
	return func(r *Reader) {
		if len(exts) == 0 {
			return
		}
		r.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			r.extensions[strings.ToLower(ext)] = true
		}
	}
}

// WithExcludes replaces the excluded path fragments.
func WithExcludes(excludes ...string) Option {
	return func(r *Reader) {
		if len(excludes) > 0 {
			r.excludes = excludes
		}
	}
}

// WithConcurrency sets how many files are read in parallel.
func WithConcurrency(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger used for skipped entries.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReader creates a Reader with the default extensions and excludes.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		excludes:    DefaultExcludes,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	WithExtensions(DefaultExtensions...)(r)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Excluded reports whether a relative path contains an excluded fragment.
// The check is a plain substring match, so ".git" also excludes ".github".
func (r *Reader) Excluded(rel string) bool {
	for _, ex := range r.excludes {
		if strings.Contains(rel, ex) {
			return true
		}
	}
	return false
}

// Accepts reports whether the file name has a scanned extension.
func (r *Reader) Accepts(name string) bool {
	return r.extensions[strings.ToLower(filepath.Ext(name))]
}

// List returns the relative paths of every scannable file under root in
// lexical order. Entries that cannot be visited are recorded as diagnostics.
func (r *Reader) List(root string) ([]string, []model.Diagnostic, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access project root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("project root is not a directory: %s", root)
	}

	var paths []string
	var diags []model.Diagnostic

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil //nolint:nilerr // unreachable for paths produced by WalkDir
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			if path == root {
				return walkErr
			}
			r.logger.Debug("skipping unreadable entry", "path", rel, "error", walkErr)
			diags = append(diags, model.Diagnostic{File: rel, Message: walkErr.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if rel == "." {
			return nil
		}
		if r.Excluded(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !r.Accepts(d.Name()) {
			return nil
		}

		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk project root: %w", err)
	}

	return paths, diags, nil
}

// Read lists and reads every scannable file under root. Files are read in
// parallel but returned in List order. Unreadable or undecodable files are
// omitted from the result and reported as diagnostics.
func (r *Reader) Read(ctx context.Context, root string) ([]File, []model.Diagnostic, error) {
	paths, diags, err := r.List(root)
	if err != nil {
		return nil, nil, err
	}

	contents := make([]string, len(paths))
	errs := make([]error, len(paths))
	done := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, rel := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				errs[i] = err
				return nil
			}
			contents[i], errs[i] = Decode(raw)
			done[i] = true
			return nil
		})
	}

	// Only context cancellation is returned from the workers.
	waitErr := g.Wait()

	files := make([]File, 0, len(paths))
	for i, rel := range paths {
		if !done[i] && errs[i] == nil {
			continue
		}
		if errs[i] != nil {
			r.logger.Debug("skipping file", "path", rel, "error", errs[i])
			diags = append(diags, model.Diagnostic{File: rel, Message: errs[i].Error()})
			continue
		}
		files = append(files, File{Path: rel, Content: contents[i]})
	}

	return files, diags, waitErr
}

// Decode converts raw file bytes to text. A UTF-16 byte order mark selects
// UTF-16 decoding; a UTF-8 byte order mark is dropped. Anything else must
// be valid UTF-8.
func Decode(raw []byte) (string, error) {
	if hasUTF16BOM(raw) {
		decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(decoder, raw)
		if err != nil {
			return "", fmt.Errorf("failed to decode UTF-16 content: %w", err)
		}
		return string(out), nil
	}

	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return strings.TrimPrefix(string(raw), "\ufeff"), nil
}

// hasUTF16BOM reports whether raw starts with a UTF-16 byte order mark.
func hasUTF16BOM(raw []byte) bool {
	if len(raw) < 2 {
		return false
	}
	return (raw[0] == 0xFE && raw[1] == 0xFF) || (raw[0] == 0xFF && raw[1] == 0xFE)
}
