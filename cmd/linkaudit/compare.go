package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/linkaudit/internal/config"
	"github.com/nao1215/linkaudit/internal/database"
	"github.com/nao1215/linkaudit/internal/model"
	"github.com/nao1215/linkaudit/internal/report"
)

// Constants for risk direction and summary messages.
const (
	riskDirectionWorsened  = "worsened"
	riskDirectionImproved  = "improved"
	riskDirectionUnchanged = "unchanged"
	noFindingsMessage      = "No findings"

	// fingerprintShown is how many fingerprint characters are displayed.
	fingerprintShown = 12
)

// compareOptions selects the audits to compare and the output format.
type compareOptions struct {
	withID   int64
	since    string
	json     bool
	markdown bool
}

// NewCompareCmd creates the compare command.
// This command compares audit results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [project-root]",
		Short: "Compare audit results with historical data",
		Long: `Compare displays differences between the current and previous audits.

This command retrieves stored audits from the history database and shows:
- New findings that appeared since the previous audit
- Resolved findings that are no longer present
- Changes in severity counts and broken links
- Whether the audit fingerprint changed at all

The comparison requires at least two audits of the project in the database.
Use 'linkaudit scan' to audit a project and save the result.

Examples:
  # Compare the latest two audits of the current project
  linkaudit compare

  # List the audit history of a project
  linkaudit compare --list ./web

  # Compare with a specific stored audit by ID
  linkaudit compare --with-id 5 ./web

  # Compare with the first audit since a date
  linkaudit compare --since 2025-01-01 ./web

  # List all audited projects in the database
  linkaudit compare --list-projects`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List audit history for the project")
	cmd.Flags().BoolP("list-projects", "L", false,
		"List all audited projects in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific audit by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first audit at or after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listProjects, err := cmd.Flags().GetBool("list-projects")
	if err != nil {
		return err
	}
	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}

	var opts compareOptions
	if opts.withID, err = cmd.Flags().GetInt64("with-id"); err != nil {
		return err
	}
	if opts.since, err = cmd.Flags().GetString("since"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}

	// Validate arguments before opening the database.
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}
	roots, err := projectRoots(args)
	if err != nil {
		return err
	}
	project := roots[0]

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	switch {
	case listProjects:
		return listAuditedProjects(ctx, out, db)
	case listHistory:
		return listAuditHistory(ctx, out, db, project)
	default:
		return runComparison(ctx, out, db, project, opts)
	}
}

// listAuditedProjects lists all projects that have audits in the database.
func listAuditedProjects(ctx context.Context, w io.Writer, db *database.AuditDB) error {
	projects, err := db.ListAuditedProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Fprintln(w, "No audited projects found in the database.")
		fmt.Fprintln(w, "\nUse 'linkaudit scan <project-root>' to audit a project.")
		return nil
	}

	fmt.Fprintf(w, "Audited projects (%d):\n\n", len(projects))
	table := tablewriter.NewWriter(w)
	table.Header("Project")
	for _, project := range projects {
		if err := table.Append([]string{project}); err != nil {
			return fmt.Errorf("failed to render projects: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render projects: %w", err)
	}
	fmt.Fprintln(w, "\nUse 'linkaudit compare --list <project-root>' to see the audit history of a project.")

	return nil
}

// listAuditHistory lists all stored audits of a project.
func listAuditHistory(ctx context.Context, w io.Writer, db *database.AuditDB, project string) error {
	audits, err := db.GetAuditHistoryWithMetadata(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(audits) == 0 {
		fmt.Fprintf(w, "No audit history found for %s\n", project)
		fmt.Fprintln(w, "\nUse 'linkaudit scan' to audit this project.")
		return nil
	}

	fmt.Fprintf(w, "Audit history for %s (%d audits):\n\n", project, len(audits))

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Date", "Findings", "Fingerprint")
	for _, meta := range audits {
		row := []string{
			strconv.FormatInt(meta.ID, 10),
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			formatSeveritySummary(meta.SeveritySummary),
			shortFingerprint(meta.Fingerprint),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to render history: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}

	fmt.Fprintln(w, "\nUse 'linkaudit compare <project-root>' to compare the latest two audits.")
	fmt.Fprintln(w, "Use 'linkaudit compare --with-id <id> <project-root>' to compare with a specific audit.")

	return nil
}

// formatSeveritySummary formats the severity summary map into a short string.
func formatSeveritySummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	for _, s := range model.Severities {
		if v := summary[s.Key()]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", s.String()[:1], v))
		}
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// shortFingerprint abbreviates a fingerprint for display.
func shortFingerprint(fp string) string {
	if len(fp) > fingerprintShown {
		return fp[:fingerprintShown]
	}
	return fp
}

// runComparison compares the latest audit of project with an earlier one.
func runComparison(ctx context.Context, w io.Writer, db *database.AuditDB, project string, opts compareOptions) error {
	docs, err := db.GetAuditHistory(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(docs) == 0 {
		return fmt.Errorf("no audit history found for %s", project)
	}

	if len(docs) < 2 && opts.withID == 0 && opts.since == "" {
		return fmt.Errorf("at least 2 audits are required for comparison (found %d)", len(docs))
	}

	// Latest audit is always the current one.
	current := docs[0]

	previous, err := selectPrevious(ctx, db, docs, project, opts)
	if err != nil {
		return err
	}

	comparison := compareDocuments(previous, current)

	switch {
	case opts.json:
		return outputComparisonJSON(w, comparison)
	case opts.markdown:
		return outputComparisonMarkdown(w, comparison)
	default:
		return outputComparisonText(w, comparison)
	}
}

// selectPrevious picks the audit to compare against: by ID, by date, or
// the second newest. docs are sorted newest first.
func selectPrevious(ctx context.Context, db *database.AuditDB, docs []*report.Document, project string, opts compareOptions) (*report.Document, error) {
	switch {
	case opts.withID > 0:
		previous, err := db.GetAuditReportByID(ctx, opts.withID)
		if err != nil {
			return nil, fmt.Errorf("failed to get audit with ID %d: %w", opts.withID, err)
		}
		if previous == nil {
			return nil, fmt.Errorf("audit with ID %d not found", opts.withID)
		}
		if previous.Project != project {
			return nil, fmt.Errorf("audit ID %d belongs to %s, not %s", opts.withID, previous.Project, project)
		}
		return previous, nil

	case opts.since != "":
		parsedDate, err := time.Parse("2006-01-02", opts.since)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Iterate in reverse to find the oldest audit at or after the date.
		for i := len(docs) - 1; i >= 0; i-- {
			if !docs[i].DateScanned.Before(parsedDate) {
				if i == 0 {
					return nil, fmt.Errorf("only one audit found since %s; at least 2 audits are required for comparison", opts.since)
				}
				return docs[i], nil
			}
		}
		return nil, fmt.Errorf("no audits found since %s", opts.since)

	default:
		if len(docs) < 2 {
			return nil, errors.New("at least 2 audits are required for comparison")
		}
		return docs[1], nil
	}
}

// ComparisonResult holds the result of comparing two audits.
type ComparisonResult struct {
	// Project is the audited project root.
	Project string `json:"project"`

	// PreviousAudit contains metadata about the previous audit.
	PreviousAudit AuditMetadata `json:"previous_audit"`

	// CurrentAudit contains metadata about the current audit.
	CurrentAudit AuditMetadata `json:"current_audit"`

	// NewFindings contains findings that are new in the current audit.
	NewFindings []model.Finding `json:"new_findings,omitempty"`

	// ResolvedFindings contains findings of the previous audit that are gone.
	ResolvedFindings []model.Finding `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of findings present in both audits.
	UnchangedCount int `json:"unchanged_count"`

	// SameFingerprint is true when both audits have identical content.
	SameFingerprint bool `json:"same_fingerprint"`

	// RiskChange describes the overall change in risk level.
	RiskChange RiskChange `json:"risk_change"`
}

// AuditMetadata contains metadata about an audit for comparison display.
type AuditMetadata struct {
	DateScanned   time.Time `json:"date_scanned"`
	Fingerprint   string    `json:"fingerprint"`
	TotalLinks    int       `json:"total_links"`
	BrokenLinks   int       `json:"broken_links"`
	TotalFindings int       `json:"total_findings"`
	CriticalCount int       `json:"critical_count"`
	MediumCount   int       `json:"medium_count"`
	LowCount      int       `json:"low_count"`
}

// RiskChange describes the change in risk level between audits.
type RiskChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	CriticalDelta    int `json:"critical_delta"`
	MediumDelta      int `json:"medium_delta"`
	LowDelta         int `json:"low_delta"`
	BrokenLinksDelta int `json:"broken_links_delta"`
}

// newAuditMetadata extracts comparison metadata from a stored audit.
func newAuditMetadata(doc *report.Document) AuditMetadata {
	return AuditMetadata{
		DateScanned:   doc.DateScanned,
		Fingerprint:   doc.Fingerprint,
		TotalLinks:    doc.Summary.TotalLinks,
		BrokenLinks:   doc.Summary.BrokenLinks,
		TotalFindings: len(doc.Issues.All()),
		CriticalCount: len(doc.Issues.Critical),
		MediumCount:   len(doc.Issues.Medium),
		LowCount:      len(doc.Issues.Low),
	}
}

// compareDocuments compares two audits. Findings are matched by type,
// location and link; repeated identical findings are matched one to one.
// Output order follows the order of findings in the audits.
func compareDocuments(previous, current *report.Document) *ComparisonResult {
	result := &ComparisonResult{
		Project:         current.Project,
		PreviousAudit:   newAuditMetadata(previous),
		CurrentAudit:    newAuditMetadata(current),
		SameFingerprint: previous.Fingerprint != "" && previous.Fingerprint == current.Fingerprint,
	}

	previousFindings := previous.Issues.All()
	currentFindings := current.Issues.All()

	remaining := countFindings(previousFindings)
	for _, f := range currentFindings {
		key := findingKey(f)
		if remaining[key] > 0 {
			remaining[key]--
			result.UnchangedCount++
			continue
		}
		result.NewFindings = append(result.NewFindings, f)
	}

	remaining = countFindings(currentFindings)
	for _, f := range previousFindings {
		key := findingKey(f)
		if remaining[key] > 0 {
			remaining[key]--
			continue
		}
		result.ResolvedFindings = append(result.ResolvedFindings, f)
	}

	result.RiskChange = calculateRiskChange(result.PreviousAudit, result.CurrentAudit)

	return result
}

// countFindings counts findings per key.
func countFindings(findings []model.Finding) map[string]int {
	counts := make(map[string]int, len(findings))
	for _, f := range findings {
		counts[findingKey(f)]++
	}
	return counts
}

// findingKey generates a key for a finding for comparison purposes.
func findingKey(f model.Finding) string {
	return f.Type + "|" + f.Location() + "|" + f.Link
}

// calculateRiskChange calculates the change in risk between two audits.
func calculateRiskChange(previous, current AuditMetadata) RiskChange {
	change := RiskChange{
		CriticalDelta:    current.CriticalCount - previous.CriticalCount,
		MediumDelta:      current.MediumCount - previous.MediumCount,
		LowDelta:         current.LowCount - previous.LowCount,
		BrokenLinksDelta: current.BrokenLinks - previous.BrokenLinks,
	}

	// Critical findings weigh the most.
	previousScore := previous.CriticalCount*100 + previous.MediumCount*10 + previous.LowCount*5
	currentScore := current.CriticalCount*100 + current.MediumCount*10 + current.LowCount*5

	switch {
	case currentScore < previousScore:
		change.Direction = riskDirectionImproved
	case currentScore > previousScore:
		change.Direction = riskDirectionWorsened
	default:
		change.Direction = riskDirectionUnchanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(w io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// comparisonRows returns the severity table rows shared by text and Markdown output.
func comparisonRows(result *ComparisonResult) [][]string {
	prev, cur, delta := result.PreviousAudit, result.CurrentAudit, result.RiskChange
	return [][]string{
		{"Critical", strconv.Itoa(prev.CriticalCount), strconv.Itoa(cur.CriticalCount), formatDelta(delta.CriticalDelta)},
		{"Medium", strconv.Itoa(prev.MediumCount), strconv.Itoa(cur.MediumCount), formatDelta(delta.MediumDelta)},
		{"Low", strconv.Itoa(prev.LowCount), strconv.Itoa(cur.LowCount), formatDelta(delta.LowDelta)},
		{"Broken links", strconv.Itoa(prev.BrokenLinks), strconv.Itoa(cur.BrokenLinks), formatDelta(delta.BrokenLinksDelta)},
		{"Total findings", strconv.Itoa(prev.TotalFindings), strconv.Itoa(cur.TotalFindings), formatDelta(cur.TotalFindings - prev.TotalFindings)},
	}
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(w io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("Audit Comparison: " + result.Project)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Risk Status:** %s", formatRiskDirection(result.RiskChange.Direction))
	md.PlainText("")

	if result.SameFingerprint {
		md.Note("Both audits have the same fingerprint: nothing changed.")
		md.PlainText("")
	}

	rows := [][]string{{
		"Date",
		result.PreviousAudit.DateScanned.Format("2006-01-02 15:04"),
		result.CurrentAudit.DateScanned.Format("2006-01-02 15:04"),
		"-",
	}}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   append(rows, comparisonRows(result)...),
	})
	md.PlainText("")

	if len(result.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Findings (%d)", len(result.NewFindings)))
		md.PlainText("")
		items := make([]string, 0, len(result.NewFindings))
		for _, f := range result.NewFindings {
			items = append(items, fmt.Sprintf("**[%s]** %s (`%s`)", f.SeverityText, f.Issue, f.Location()))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Findings (%d)", len(result.ResolvedFindings)))
		md.PlainText("")
		items := make([]string, 0, len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			items = append(items, fmt.Sprintf("~~**[%s]** %s (`%s`)~~", f.SeverityText, f.Issue, f.Location()))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainTextf("*%d findings unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(w, "Audit Comparison: %s\n", result.Project)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nRisk Status: %s\n", formatRiskDirection(result.RiskChange.Direction))
	if result.SameFingerprint {
		fmt.Fprintln(w, "Fingerprint: unchanged")
	} else {
		fmt.Fprintf(w, "Fingerprint: %s -> %s\n",
			shortFingerprint(result.PreviousAudit.Fingerprint),
			shortFingerprint(result.CurrentAudit.Fingerprint))
	}

	fmt.Fprintf(w, "\nPrevious audit: %s\n", result.PreviousAudit.DateScanned.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Current audit:  %s\n", result.CurrentAudit.DateScanned.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "\nFindings Summary:")
	table := tablewriter.NewWriter(w)
	table.Header("Severity", "Previous", "Current", "Change")
	for _, row := range comparisonRows(result) {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to render comparison: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render comparison: %w", err)
	}

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(w, "\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Fprintf(w, "  [+] [%s] %s\n", f.SeverityText, f.Issue)
			fmt.Fprintf(w, "      Location: %s\n", f.Location())
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(w, "\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Fprintf(w, "  [-] [%s] %s\n", f.SeverityText, f.Issue)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(w, "\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	return nil
}

// formatRiskDirection formats the risk change direction for display.
func formatRiskDirection(direction string) string {
	switch direction {
	case riskDirectionImproved:
		return "IMPROVED (fewer or less severe findings)"
	case riskDirectionWorsened:
		return "WORSENED (more or more severe findings)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
