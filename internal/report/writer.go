package report

import (
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/linkaudit/internal/model"
)

const (
	// mediumFindingsShown is how many medium findings the Markdown report lists.
	mediumFindingsShown = 5

	// lowFindingsShown is how many low findings are listed as examples.
	lowFindingsShown = 5

	// externalSampleShown is how many external links are listed.
	externalSampleShown = 10
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the audit result to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.AuditResult) (int, error)
}

// MultiWriter writes to multiple Writers in sequence.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *model.AuditResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// CategoryLabel returns a display label such as "Relative Or Special".
// A new Caser is created per call because Casers are stateful.
func CategoryLabel(c model.Category) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(c), "_", " "))
}

// statusText returns the run status shown in report headers.
func statusText(result *model.AuditResult) string {
	switch {
	case result.TimedOut:
		return "TIMED OUT (partial results)"
	case result.ErrorMessage != "":
		return "ERROR - " + result.ErrorMessage
	default:
		return "Complete"
	}
}

// firstN returns at most n elements of s.
func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// recommendations returns the closing advice for a result.
func recommendations(result *model.AuditResult) []string {
	s := result.Summary()

	var recs []string
	if s.CriticalCount > 0 {
		recs = append(recs, "Urgent: fix the broken internal links that point to routes that do not exist")
	}
	if s.MediumCount > 0 {
		recs = append(recs, "Update or remove external links that answer with an error status")
	}
	if s.LowCount > 0 {
		recs = append(recs, "Check manually the external links that could not be validated")
	}
	if s.EmptyLinks > 0 {
		recs = append(recs, "Implement the functionality behind placeholder links (#)")
	}
	if s.ExternalLinks > 0 {
		recs = append(recs, "Validate external links periodically")
	}
	return recs
}
