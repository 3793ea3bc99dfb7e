package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/linkaudit/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the audit in Markdown format.
func (w *MarkdownWriter) Write(result *model.AuditResult) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := result.Summary()

	w.writeHeader(md, result)
	w.writeExecutiveSummary(md, summary)
	w.writeSeverity(md, summary)
	w.writeCategories(md, result)
	w.writeCritical(md, result.FindingsBySeverity(model.SeverityCritical))
	w.writeMedium(md, result.FindingsBySeverity(model.SeverityMedium))
	w.writeLow(md, result.FindingsBySeverity(model.SeverityLow))
	w.writeRoutes(md, result.Routes)
	w.writeExternal(md, result.External)
	w.writeDiagnostics(md, result.Diagnostics)
	w.writeRecommendations(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report title and audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.AuditResult) {
	md.H1("Link Audit Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Project", "`" + result.ProjectRoot + "`"},
			{"Scan Date", result.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Files Scanned", strconv.Itoa(result.FilesScanned)},
			{"Status", statusText(result)},
		},
	})
	md.PlainText("")
}

// writeExecutiveSummary writes the link counts.
func (w *MarkdownWriter) writeExecutiveSummary(md *markdown.Markdown, s model.Summary) {
	md.H2("Executive Summary")
	md.PlainText("")

	md.BulletList(
		fmt.Sprintf("**Total links found:** %d", s.TotalLinks),
		fmt.Sprintf("**Internal links:** %d", s.InternalLinks),
		fmt.Sprintf("**External links:** %d", s.ExternalLinks),
		fmt.Sprintf("**Empty/placeholder links:** %d", s.EmptyLinks),
		fmt.Sprintf("**Relative/special links:** %d", s.RelativeOrSpecial),
		fmt.Sprintf("**Valid links:** %d", s.ValidLinks),
		fmt.Sprintf("**Broken links:** %d", s.BrokenLinks),
		fmt.Sprintf("**Valid routes found:** %d", s.ValidRoutes),
	)
	md.PlainText("")
}

// writeSeverity writes the severity table, pie chart and alert.
func (w *MarkdownWriter) writeSeverity(md *markdown.Markdown, s model.Summary) {
	md.H3("Issues by Severity")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count", "Meaning"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(s.CriticalCount), "routes not found"},
			{"🟡 Medium", strconv.Itoa(s.MediumCount), "external links answering with errors"},
			{"🟢 Low", strconv.Itoa(s.LowCount), "external links that could not be validated"},
			{"**Total**", "**" + strconv.Itoa(s.TotalFindings()) + "**", ""},
		},
	})
	md.PlainText("")

	if s.TotalFindings() > 0 {
		w.writePieChart(md, s)
	}

	switch {
	case s.CriticalCount > 0:
		md.Cautionf("%d internal link(s) point to routes that do not exist.", s.CriticalCount)
	case s.MediumCount > 0:
		md.Warningf("%d external link(s) answered with an error status.", s.MediumCount)
	case s.LowCount > 0:
		md.Note("Only external links that could not be validated were found.")
	default:
		md.Tip("No broken links detected.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	if s.CriticalCount > 0 {
		chart.LabelAndIntValue("Critical", uint64(s.CriticalCount))
	}
	if s.MediumCount > 0 {
		chart.LabelAndIntValue("Medium", uint64(s.MediumCount))
	}
	if s.LowCount > 0 {
		chart.LabelAndIntValue("Low", uint64(s.LowCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeCategories writes occurrence counts per category.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, result *model.AuditResult) {
	md.H3("Link Categories")
	md.PlainText("")

	rows := make([][]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		rows = append(rows, []string{CategoryLabel(c), strconv.Itoa(len(result.Bucket(c)))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindingDetail writes one finding as a subsection.
func (w *MarkdownWriter) writeFindingDetail(md *markdown.Markdown, f model.Finding) {
	md.H3(f.Location())
	md.BulletList(
		"**Link:** `"+f.Link+"`",
		"**Issue:** "+f.Issue,
		"**Recommendation:** "+f.Recommendation,
	)
	md.PlainText("")
}

// writeCritical writes every critical finding.
func (w *MarkdownWriter) writeCritical(md *markdown.Markdown, findings []model.Finding) {
	if len(findings) == 0 {
		return
	}

	md.H2("🔴 Critical Issues")
	md.PlainText("")
	for _, f := range findings {
		w.writeFindingDetail(md, f)
	}
}

// writeMedium writes the first medium findings.
func (w *MarkdownWriter) writeMedium(md *markdown.Markdown, findings []model.Finding) {
	if len(findings) == 0 {
		return
	}

	md.H2("🟡 Medium Issues")
	md.PlainText("")
	for _, f := range firstN(findings, mediumFindingsShown) {
		w.writeFindingDetail(md, f)
	}
	if rest := len(findings) - mediumFindingsShown; rest > 0 {
		md.PlainTextf("*... and %d more.*", rest)
		md.PlainText("")
	}
}

// writeLow writes a short list of low finding examples.
func (w *MarkdownWriter) writeLow(md *markdown.Markdown, findings []model.Finding) {
	if len(findings) == 0 {
		return
	}

	md.H2("🟢 Low Issues")
	md.PlainText("")
	md.PlainTextf("%d external link(s) could not be validated. Examples:", len(findings))
	md.PlainText("")

	items := make([]string, 0, lowFindingsShown)
	for _, f := range firstN(findings, lowFindingsShown) {
		items = append(items, "`"+f.Location()+"` - "+f.Link)
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeRoutes writes the sorted route list as a code block.
func (w *MarkdownWriter) writeRoutes(md *markdown.Markdown, routes model.RouteSet) {
	md.H2("✅ Valid Routes Found")
	md.PlainText("")

	if routes.Len() == 0 {
		md.PlainText("No routes found.")
		md.PlainText("")
		return
	}
	md.CodeBlocks(markdown.SyntaxHighlight("text"), strings.Join(routes.Sorted(), "\n"))
	md.PlainText("")
}

// writeExternal writes a sample of external links.
func (w *MarkdownWriter) writeExternal(md *markdown.Markdown, external []model.LinkOccurrence) {
	if len(external) == 0 {
		return
	}

	md.H2("🌐 External Links Found")
	md.PlainText("")
	md.PlainTextf("Total: %d", len(external))
	md.PlainText("")
	md.PlainText("Sample of external links:")
	md.PlainText("")

	items := make([]string, 0, externalSampleShown)
	for _, occ := range firstN(external, externalSampleShown) {
		items = append(items, "`"+occ.Link+"` in `"+occ.File+"`")
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeDiagnostics writes files that could not be scanned.
func (w *MarkdownWriter) writeDiagnostics(md *markdown.Markdown, diags []model.Diagnostic) {
	if len(diags) == 0 {
		return
	}

	md.H2("Skipped Files")
	md.PlainText("")

	rows := make([][]string, len(diags))
	for i, d := range diags {
		rows[i] = []string{"`" + d.File + "`", d.Message}
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeRecommendations writes the closing advice.
func (w *MarkdownWriter) writeRecommendations(md *markdown.Markdown, result *model.AuditResult) {
	recs := recommendations(result)
	if len(recs) == 0 {
		return
	}

	md.H2("💡 Recommendations")
	md.PlainText("")
	md.OrderedList(recs...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Audit generated by linkaudit*")
}
