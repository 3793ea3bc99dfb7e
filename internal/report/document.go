package report

import (
	"time"

	"github.com/nao1215/linkaudit/internal/model"
)

// Document is the machine-readable form of an audit. It is what the JSON
// writer emits and what the history store persists.
type Document struct {
	// Version is the linkaudit version that produced the document.
	Version string `json:"version,omitempty"`

	// Project is the audited project root.
	Project string `json:"project"`

	// DateScanned is when the audit started.
	DateScanned time.Time `json:"date_scanned"`

	// Summary holds the link and finding counts.
	Summary model.Summary `json:"summary"`

	// Severity maps each severity key to its finding count.
	Severity map[string]int `json:"severity"`

	// Issues holds every finding grouped by severity.
	Issues Issues `json:"issues"`

	// Routes is the sorted route list.
	Routes model.RouteSet `json:"routes"`

	// BrokenLinks are the internal links that matched no route.
	BrokenLinks []model.LinkOccurrence `json:"broken_links"`

	// Categories maps each category to its occurrence count.
	Categories map[string]int `json:"categories"`

	// Diagnostics lists files that could not be scanned.
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`

	// TimedOut indicates partial results.
	TimedOut bool `json:"timed_out"`

	// Error is the step error, if any.
	Error string `json:"error,omitempty"`

	// Fingerprint identifies the audit content.
	Fingerprint string `json:"fingerprint"`
}

// Issues groups findings by severity.
type Issues struct {
	Critical []model.Finding `json:"critical"`
	Medium   []model.Finding `json:"medium"`
	Low      []model.Finding `json:"low"`
}

// All returns every finding, critical first.
func (i Issues) All() []model.Finding {
	all := make([]model.Finding, 0, len(i.Critical)+len(i.Medium)+len(i.Low))
	all = append(all, i.Critical...)
	all = append(all, i.Medium...)
	return append(all, i.Low...)
}

// NewDocument builds a Document from an audit result.
func NewDocument(result *model.AuditResult, version string) *Document {
	summary := result.Summary()

	categories := make(map[string]int, len(model.Categories))
	for _, c := range model.Categories {
		categories[c.String()] = len(result.Bucket(c))
	}

	return &Document{
		Version:     version,
		Project:     result.ProjectRoot,
		DateScanned: result.DateScanned,
		Summary:     summary,
		Severity:    summary.SeverityCounts(),
		Issues: Issues{
			Critical: nonNil(result.FindingsBySeverity(model.SeverityCritical)),
			Medium:   nonNil(result.FindingsBySeverity(model.SeverityMedium)),
			Low:      nonNil(result.FindingsBySeverity(model.SeverityLow)),
		},
		Routes:      result.Routes,
		BrokenLinks: nonNil(result.Broken),
		Categories:  categories,
		Diagnostics: result.Diagnostics,
		TimedOut:    result.TimedOut,
		Error:       result.ErrorMessage,
		Fingerprint: result.Fingerprint(),
	}
}

// nonNil makes nil slices encode as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
