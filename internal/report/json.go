package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/linkaudit/internal/model"
)

// JSONWriter outputs audits as a Document in JSON format, one document
// per Write followed by a newline.
type JSONWriter struct {
	baseWriter

	version string

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given line prefix and
// per-level indentation.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the version recorded in each document.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
// Output is compact unless WithIndent or WithPrettyPrint is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the audit in JSON format.
func (w *JSONWriter) Write(result *model.AuditResult) (int, error) {
	return w.WriteDocument(NewDocument(result, w.version))
}

// WriteDocument outputs an already built document, e.g. one loaded from
// the history store.
func (w *JSONWriter) WriteDocument(doc *Document) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Links are reported exactly as written, so "&" stays "&".
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	if err := enc.Encode(doc); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
