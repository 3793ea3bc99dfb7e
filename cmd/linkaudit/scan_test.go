package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/linkaudit/internal/config"
	"github.com/nao1215/linkaudit/internal/database"
	"github.com/nao1215/linkaudit/internal/model"
	"github.com/nao1215/linkaudit/internal/report"
)

// writeProject creates files under root from a map of relative path to content.
func writeProject(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}
}

// sampleProject returns a project with routes / and /login and a
// navigation component linking to /login and to the missing /pricing.
func sampleProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeProject(t, root, map[string]string{
		"app/page.tsx":       "export default function Home() { return null }\n",
		"app/login/page.tsx": "export default function Login() { return null }\n",
		"components/nav.tsx": `export function Nav() {
  return (
    <nav>
      <a href="/login">Login</a>
      <a href="/pricing">Pricing</a>
    </nav>
  )
}
`,
	})
	return root
}

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestConfig returns a configuration auditing roots without saving.
func newTestConfig(roots ...string) *config.Config {
	cfg := config.NewConfig()
	cfg.Roots = roots
	cfg.SaveToDB = false
	return cfg
}

// TestNewScanCmd tests the scan command flags.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()
	if cmd.Use != "scan [project-root...]" {
		t.Errorf("unexpected Use: %q", cmd.Use)
	}

	flagsWithShort := map[string]string{
		"config":   "c",
		"timeout":  "t",
		"batch":    "b",
		"probe":    "p",
		"json":     "j",
		"markdown": "m",
		"output":   "o",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}

	for _, flag := range []string{"route-dir", "allow", "sample", "probe-concurrency", "probe-timeout", "proxy", "fail-on", "no-save"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected flag %q to exist", flag)
		}
	}
}

// TestBuildConfig tests the precedence of defaults, project file and flags.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	writeConfig := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "audit.yaml")
		content := "routeDir: src/app\nallowlist: [/healthz]\nprobe:\n  enabled: true\n  sampleSize: 3\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		return path
	}

	t.Run("project file overrides defaults", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfig(t), "--no-save"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{root})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.RouteDir != "src/app" {
			t.Errorf("expected route dir from file, got %q", cfg.RouteDir)
		}
		if !cfg.Probe || cfg.ProbeSampleSize != 3 {
			t.Errorf("expected probe settings from file, got probe=%v sample=%d", cfg.Probe, cfg.ProbeSampleSize)
		}
		if cfg.SaveToDB {
			t.Error("expected --no-save to disable saving")
		}
		if len(cfg.Roots) != 1 || cfg.Roots[0] != root {
			t.Errorf("unexpected roots: %v", cfg.Roots)
		}
	})

	t.Run("flags override project file", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		args := []string{
			"--config", writeConfig(t),
			"--route-dir", "pages",
			"--allow", "/status",
			"--sample", "7",
			"--batch", "2",
			"--json",
		}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{t.TempDir()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.RouteDir != "pages" {
			t.Errorf("expected route dir from flag, got %q", cfg.RouteDir)
		}
		if cfg.ProbeSampleSize != 7 {
			t.Errorf("expected sample size from flag, got %d", cfg.ProbeSampleSize)
		}
		if cfg.BatchSize != 2 {
			t.Errorf("expected batch size 2, got %d", cfg.BatchSize)
		}
		if !cfg.JSONReport {
			t.Error("expected JSON report")
		}
		wantAllow := []string{"/healthz", "/status"}
		if strings.Join(cfg.Allowlist, ",") != strings.Join(wantAllow, ",") {
			t.Errorf("expected allowlist %v, got %v", wantAllow, cfg.Allowlist)
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"--config", missing}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		_, err := buildConfig(cmd, []string{t.TempDir()})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func severityPtr(s model.Severity) *model.Severity {
	return &s
}

// TestFailThreshold tests parsing of --fail-on.
func TestFailThreshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    *model.Severity
		wantErr bool
	}{
		{name: "unset", args: nil, want: nil},
		{name: "critical", args: []string{"--fail-on", "critical"}, want: severityPtr(model.SeverityCritical)},
		{name: "case insensitive", args: []string{"--fail-on", "MEDIUM"}, want: severityPtr(model.SeverityMedium)},
		{name: "invalid", args: []string{"--fail-on", "urgent"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewScanCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}

			got, err := failThreshold(cmd)
			if (err != nil) != tt.wantErr {
				t.Fatalf("failThreshold() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("failThreshold() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("failThreshold() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

// TestCheckThreshold tests failing on findings at or above a severity.
func TestCheckThreshold(t *testing.T) {
	t.Parallel()

	occ := model.LinkOccurrence{Link: "https://ext.com", File: "a.tsx", Line: 1}
	result := model.NewAuditResult("/srv/web")
	result.AddFindings(model.NewFinding(model.FindingExternalStatus, occ, "external link returned 404"))
	results := []*model.AuditResult{result, nil}

	t.Run("nil threshold never fails", func(t *testing.T) {
		t.Parallel()
		if err := checkThreshold(results, nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("finding below threshold passes", func(t *testing.T) {
		t.Parallel()
		threshold := model.SeverityCritical
		if err := checkThreshold(results, &threshold); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("finding at threshold fails", func(t *testing.T) {
		t.Parallel()
		threshold := model.SeverityMedium
		err := checkThreshold(results, &threshold)
		if !errors.Is(err, ErrFindingsAtThreshold) {
			t.Errorf("expected ErrFindingsAtThreshold, got %v", err)
		}
	})

	t.Run("finding above threshold fails", func(t *testing.T) {
		t.Parallel()
		threshold := model.SeverityLow
		if err := checkThreshold(results, &threshold); !errors.Is(err, ErrFindingsAtThreshold) {
			t.Errorf("expected ErrFindingsAtThreshold, got %v", err)
		}
	})
}

// TestRunScan tests auditing projects end to end.
func TestRunScan(t *testing.T) {
	t.Parallel()

	t.Run("writes a JSON report", func(t *testing.T) {
		t.Parallel()

		root := sampleProject(t)
		cfg := newTestConfig(root)
		cfg.JSONReport = true

		var stdout, stderr bytes.Buffer
		results, err := runScan(context.Background(), cfg, &stdout, &stderr, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}

		var doc report.Document
		if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
			t.Fatalf("report is not valid JSON: %v\n%s", err, stdout.String())
		}
		if doc.Project != root {
			t.Errorf("expected project %q, got %q", root, doc.Project)
		}
		if doc.Summary.BrokenLinks != 1 {
			t.Errorf("expected 1 broken link, got %d", doc.Summary.BrokenLinks)
		}
		if len(doc.Issues.Critical) != 1 || doc.Issues.Critical[0].Link != "/pricing" {
			t.Errorf("unexpected critical findings: %+v", doc.Issues.Critical)
		}
		if stderr.Len() != 0 {
			t.Errorf("expected no stderr output, got %q", stderr.String())
		}
	})

	t.Run("audits several projects concurrently", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(sampleProject(t), sampleProject(t), sampleProject(t))
		cfg.BatchSize = 2

		var stdout, stderr bytes.Buffer
		results, err := runScan(context.Background(), cfg, &stdout, &stderr, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		for _, r := range results {
			if len(r.Broken) != 1 {
				t.Errorf("expected 1 broken link for %s, got %v", r.ProjectRoot, r.Broken)
			}
		}
		for _, root := range cfg.Roots {
			if !strings.Contains(stdout.String(), root) {
				t.Errorf("expected report for %s", root)
			}
		}
	})

	t.Run("writes the report file and saves history", func(t *testing.T) {
		t.Parallel()

		root := sampleProject(t)
		cfg := newTestConfig(root)
		cfg.MarkdownReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "links.md")
		cfg.SaveToDB = true
		cfg.DBDir = t.TempDir()

		var stdout, stderr bytes.Buffer
		if _, err := runScan(context.Background(), cfg, &stdout, &stderr, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout.Len() != 0 {
			t.Errorf("expected nothing on stdout, got %q", stdout.String())
		}

		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# Link Audit Report") {
			t.Errorf("expected Markdown report, got %q", string(content))
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		doc, err := db.GetLatestAuditReport(context.Background(), root)
		if err != nil {
			t.Fatalf("failed to load report: %v", err)
		}
		if doc == nil {
			t.Fatal("expected saved report")
		}
		if doc.Summary.BrokenLinks != 1 {
			t.Errorf("expected 1 broken link in saved report, got %d", doc.Summary.BrokenLinks)
		}
	})

	t.Run("invalid extra pattern fails before auditing", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(sampleProject(t))
		cfg.ExtraPatterns = []config.PatternConfig{{Name: "bad", Regex: "("}}

		var stdout, stderr bytes.Buffer
		_, err := runScan(context.Background(), cfg, &stdout, &stderr, discardLogger())
		if !errors.Is(err, config.ErrInvalidPattern) {
			t.Errorf("expected ErrInvalidPattern, got %v", err)
		}
	})
}

// TestScanCommand tests the scan command through the root command.
func TestScanCommand(t *testing.T) {
	t.Parallel()

	root := sampleProject(t)
	configPath := filepath.Join(t.TempDir(), "audit.yaml")
	if err := os.WriteFile(configPath, []byte("routeDir: app\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Run("reports broken links", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		var stdout, stderr bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs([]string{"scan", "--no-save", "--config", configPath, root})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout.String(), "/pricing") {
			t.Errorf("expected broken link in report, got %q", stdout.String())
		}
	})

	t.Run("fails on critical findings", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		var stdout, stderr bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs([]string{"scan", "--no-save", "--config", configPath, "--fail-on", "critical", root})

		if err := cmd.Execute(); !errors.Is(err, ErrFindingsAtThreshold) {
			t.Errorf("expected ErrFindingsAtThreshold, got %v", err)
		}
	})

	t.Run("rejects conflicting report formats", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"scan", "--no-save", "--config", configPath, "--json", "--markdown", root})

		if err := cmd.Execute(); !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})
}

// TestOpenReportOutput tests choosing the report destination.
func TestOpenReportOutput(t *testing.T) {
	t.Parallel()

	t.Run("empty path uses stdout", func(t *testing.T) {
		t.Parallel()

		var stdout bytes.Buffer
		w, closeOutput, err := openReportOutput("", &stdout)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer closeOutput()
		if w != &stdout {
			t.Error("expected stdout writer")
		}
	})

	t.Run("creates file and directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "a", "b", "report.txt")
		w, closeOutput, err := openReportOutput(path, io.Discard)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := io.WriteString(w, "report"); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
		closeOutput()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if string(data) != "report" {
			t.Errorf("unexpected content %q", string(data))
		}
	})
}
