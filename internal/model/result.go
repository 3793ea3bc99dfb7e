package model

import (
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"
)

// Diagnostic records a problem that prevented a file from being scanned.
// Diagnostics never abort an audit.
type Diagnostic struct {
	// File is the path relative to the project root.
	File string `json:"file"`

	// Message describes the problem.
	Message string `json:"message"`
}

// AuditResult is the aggregate result of one audit run over a project.
// It is built by the pipeline steps and consumed by report writers and
// the history store.
type AuditResult struct {
	// ProjectRoot is the audited project directory.
	ProjectRoot string `json:"project_root"`

	// DateScanned is when the audit was started.
	DateScanned time.Time `json:"date_scanned"`

	// FilesScanned is the number of source files read successfully.
	FilesScanned int `json:"files_scanned"`

	// Routes is the set of routes derived from the route tree.
	Routes RouteSet `json:"routes"`

	// Occurrences holds every extracted link before classification.
	// Excluded from JSON; the category buckets carry the same data.
	Occurrences []LinkOccurrence `json:"-"`

	// Empty contains empty and placeholder links.
	Empty []LinkOccurrence `json:"empty_links"`

	// External contains absolute http(s) links.
	External []LinkOccurrence `json:"external_links"`

	// Internal contains links reconciled against Routes.
	Internal []LinkOccurrence `json:"internal_links"`

	// RelativeOrSpecial contains relative, mailto: and tel: links.
	RelativeOrSpecial []LinkOccurrence `json:"relative_or_special_links"`

	// Valid contains internal links that matched a route.
	Valid []LinkOccurrence `json:"valid_links"`

	// Broken contains internal links that matched no route.
	Broken []LinkOccurrence `json:"broken_links"`

	// Findings contains every finding in the order it was produced.
	Findings []Finding `json:"findings"`

	// Diagnostics contains files that could not be scanned.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut indicates the run was cancelled; results are partial.
	TimedOut bool `json:"timed_out"`

	// Error is the last step error, if any.
	Error error `json:"-"`

	// ErrorMessage is the serializable form of Error.
	ErrorMessage string `json:"error,omitempty"`
}

// NewAuditResult creates an empty result for the given project root.
func NewAuditResult(projectRoot string) *AuditResult {
	return &AuditResult{
		ProjectRoot: projectRoot,
		DateScanned: time.Now(),
	}
}

// Add places an occurrence into the bucket for its category.
func (r *AuditResult) Add(category Category, occ LinkOccurrence) {
	switch category {
	case CategoryEmpty:
		r.Empty = append(r.Empty, occ)
	case CategoryExternal:
		r.External = append(r.External, occ)
	case CategoryInternal:
		r.Internal = append(r.Internal, occ)
	case CategoryRelativeOrSpecial:
		r.RelativeOrSpecial = append(r.RelativeOrSpecial, occ)
	}
}

// Bucket returns the occurrences assigned to a category.
func (r *AuditResult) Bucket(category Category) []LinkOccurrence {
	switch category {
	case CategoryEmpty:
		return r.Empty
	case CategoryExternal:
		return r.External
	case CategoryInternal:
		return r.Internal
	case CategoryRelativeOrSpecial:
		return r.RelativeOrSpecial
	default:
		return nil
	}
}

// AddFindings appends findings to the result.
func (r *AuditResult) AddFindings(findings ...Finding) {
	r.Findings = append(r.Findings, findings...)
}

// AddDiagnostic records a file that could not be scanned.
func (r *AuditResult) AddDiagnostic(file, message string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{File: file, Message: message})
}

// FindingsBySeverity returns the findings of one severity, in production order.
func (r *AuditResult) FindingsBySeverity(severity Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == severity {
			out = append(out, f)
		}
	}
	return out
}

// HasFindings reports whether the audit produced any finding.
func (r *AuditResult) HasFindings() bool {
	return len(r.Findings) > 0
}

// Summary holds the counts shown at the top of every report.
type Summary struct {
	TotalLinks        int `json:"total_links"`
	InternalLinks     int `json:"internal_links"`
	ExternalLinks     int `json:"external_links"`
	EmptyLinks        int `json:"empty_links"`
	RelativeOrSpecial int `json:"relative_or_special_links"`
	ValidLinks        int `json:"valid_links"`
	BrokenLinks       int `json:"broken_links"`
	ValidRoutes       int `json:"valid_routes"`
	FilesScanned      int `json:"files_scanned"`
	CriticalCount     int `json:"critical_count"`
	MediumCount       int `json:"medium_count"`
	LowCount          int `json:"low_count"`
}

// Summary computes the report counts.
func (r *AuditResult) Summary() Summary {
	s := Summary{
		InternalLinks:     len(r.Internal),
		ExternalLinks:     len(r.External),
		EmptyLinks:        len(r.Empty),
		RelativeOrSpecial: len(r.RelativeOrSpecial),
		ValidLinks:        len(r.Valid),
		BrokenLinks:       len(r.Broken),
		ValidRoutes:       r.Routes.Len(),
		FilesScanned:      r.FilesScanned,
	}
	s.TotalLinks = s.InternalLinks + s.ExternalLinks + s.EmptyLinks + s.RelativeOrSpecial

	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityCritical:
			s.CriticalCount++
		case SeverityMedium:
			s.MediumCount++
		case SeverityLow:
			s.LowCount++
		}
	}
	return s
}

// TotalFindings returns the number of findings across all severities.
func (s Summary) TotalFindings() int {
	return s.CriticalCount + s.MediumCount + s.LowCount
}

// SeverityCounts returns the findings count keyed by Severity.Key().
func (s Summary) SeverityCounts() map[string]int {
	return map[string]int{
		SeverityCritical.Key(): s.CriticalCount,
		SeverityMedium.Key():   s.MediumCount,
		SeverityLow.Key():      s.LowCount,
	}
}

// Fingerprint returns a SHA3-256 digest of the category counts, routes and
// findings. Two audits of unchanged input yield the same fingerprint.
func (r *AuditResult) Fingerprint() string {
	h := sha3.New256()

	for _, c := range Categories {
		fmt.Fprintf(h, "category %s %d\n", c, len(r.Bucket(c)))
	}
	for _, route := range r.Routes.Sorted() {
		fmt.Fprintf(h, "route %s\n", route)
	}
	for _, f := range r.Findings {
		fmt.Fprintf(h, "finding %s %s %s:%d %q\n", f.Type, f.Severity, f.File, f.Line, f.Link)
	}

	return hex.EncodeToString(h.Sum(nil))
}
