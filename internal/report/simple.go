package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/linkaudit/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists every occurrence instead of samples and adds
	// recommendations to each finding.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the audit in human-readable format.
func (w *SimpleWriter) Write(result *model.AuditResult) (int, error) {
	var sb strings.Builder
	summary := result.Summary()

	w.writeHeader(&sb, result)
	w.writeSummary(&sb, summary)
	w.writeFindings(&sb, result)
	w.writeExternal(&sb, result)
	w.writeDiagnostics(&sb, result)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeSection writes a section title between rules.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with audit information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.AuditResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         LINK AUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Project:        %s\n", result.ProjectRoot)
	fmt.Fprintf(sb, "Scan Date:      %s\n", result.DateScanned.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Files Scanned:  %d\n", result.FilesScanned)
	fmt.Fprintf(sb, "Status:         %s\n", statusText(result))
	sb.WriteString("\n")
}

// writeSummary writes link counts and the severity summary.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, s model.Summary) {
	writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  Total links:          %d\n", s.TotalLinks)
	fmt.Fprintf(sb, "  Internal:             %d\n", s.InternalLinks)
	fmt.Fprintf(sb, "  External:             %d\n", s.ExternalLinks)
	fmt.Fprintf(sb, "  Empty/placeholder:    %d\n", s.EmptyLinks)
	fmt.Fprintf(sb, "  Relative/special:     %d\n", s.RelativeOrSpecial)
	fmt.Fprintf(sb, "  Valid:                %d\n", s.ValidLinks)
	fmt.Fprintf(sb, "  Broken:               %d\n", s.BrokenLinks)
	fmt.Fprintf(sb, "  Routes found:         %d\n", s.ValidRoutes)
	sb.WriteString("\n")

	fmt.Fprintf(sb, "  CRITICAL: %d\n", s.CriticalCount)
	fmt.Fprintf(sb, "  MEDIUM:   %d\n", s.MediumCount)
	fmt.Fprintf(sb, "  LOW:      %d\n", s.LowCount)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d findings\n", s.TotalFindings())
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by severity, critical first.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, result *model.AuditResult) {
	if !result.HasFindings() && !w.showEmpty {
		return
	}

	writeSection(sb, "FINDINGS")

	for _, severity := range model.Severities {
		findings := result.FindingsBySeverity(severity)
		if len(findings) == 0 && !w.showEmpty {
			continue
		}
		w.writeFindingsForSeverity(sb, severity, findings)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	fmt.Fprintf(sb, "[%s] %s (%d)\n", severityIndicator(severity), severity.String(), len(findings))

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, f := range findings {
		fmt.Fprintf(sb, "  * %s  %s\n", f.Location(), f.Issue)
		fmt.Fprintf(sb, "    Link: %s\n", f.Link)
		if w.verbose {
			fmt.Fprintf(sb, "    Recommendation: %s\n", f.Recommendation)
		}
	}
	sb.WriteString("\n")
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	default:
		return "?"
	}
}

// writeExternal writes the external link sample.
func (w *SimpleWriter) writeExternal(sb *strings.Builder, result *model.AuditResult) {
	if len(result.External) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "EXTERNAL LINKS")

	shown := result.External
	if !w.verbose {
		shown = firstN(shown, externalSampleShown)
	}
	for _, occ := range shown {
		fmt.Fprintf(sb, "  %s  (%s)\n", occ.Link, occ.Location())
	}
	if rest := len(result.External) - len(shown); rest > 0 {
		fmt.Fprintf(sb, "  ... and %d more\n", rest)
	}
	sb.WriteString("\n")
}

// writeDiagnostics writes files that could not be scanned.
func (w *SimpleWriter) writeDiagnostics(sb *strings.Builder, result *model.AuditResult) {
	if len(result.Diagnostics) == 0 {
		return
	}

	writeSection(sb, "SKIPPED FILES")
	for _, d := range result.Diagnostics {
		fmt.Fprintf(sb, "  %s: %s\n", d.File, d.Message)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by linkaudit\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
