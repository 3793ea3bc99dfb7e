package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkaudit/internal/config"
	"github.com/nao1215/linkaudit/internal/database"
	"github.com/nao1215/linkaudit/internal/model"
	"github.com/nao1215/linkaudit/internal/pipeline"
	"github.com/nao1215/linkaudit/internal/probe"
	"github.com/nao1215/linkaudit/internal/report"
)

// ErrFindingsAtThreshold is returned when --fail-on is set and an audit
// has findings at or above the given severity.
var ErrFindingsAtThreshold = errors.New("findings at or above the failure threshold")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [project-root...]",
		Short: "Audit the links of one or more projects",
		Long: `Scan audits the hyperlinks of a file-system-routed web project.

It derives the routes served by the route directory, extracts links from the
project sources, and reports:
- Internal links to routes that do not exist (critical)
- External links answering with an error status (medium, with --probe)
- External links that could not be validated (low, with --probe)

The current directory is audited when no project root is given.
Every audit is saved to the history database for 'linkaudit compare'.

Examples:
  # Audit the project in the current directory
  linkaudit scan

  # Audit a project and write a Markdown report
  linkaudit scan --markdown -o LINK_AUDIT_REPORT.md ./web

  # Probe external links through a SOCKS5 proxy
  linkaudit scan --probe --proxy 127.0.0.1:1080 ./web

  # Audit several projects, two at a time, and fail CI on broken links
  linkaudit scan --batch 2 --fail-on critical ./site-a ./site-b ./site-c

Configuration file (.linkaudit) example:
  routeDir: src/app
  excludeDirs: [node_modules, .git, .next, dist, storybook-static]
  allowlist: [/healthz]
  probe:
    enabled: true
    timeout: 8s`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkaudit in the project, current or home directory)")

	// Audit behavior flags
	cmd.Flags().String("route-dir", "",
		"Route directory relative to the project root (default \"app\")")
	cmd.Flags().StringSlice("allow", nil,
		"Additional always-valid paths (repeatable)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Deadline for the whole run (0 disables it)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of projects audited concurrently")

	// Probe flags
	cmd.Flags().BoolP("probe", "p", false,
		"Probe a sample of external links with HEAD requests")
	cmd.Flags().Int("sample", probe.DefaultSampleSize,
		"Number of external links probed")
	cmd.Flags().Int("probe-concurrency", probe.DefaultConcurrency,
		"Number of probes in flight")
	cmd.Flags().Duration("probe-timeout", probe.DefaultTimeout,
		"Timeout for each probe request")
	cmd.Flags().String("proxy", "",
		"Route probes through a SOCKS5 proxy (host:port)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("fail-on", "",
		"Exit with an error if any finding has this severity or higher (critical, medium, low)")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not save the audit to the history database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	threshold, err := failThreshold(cmd)
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogger(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	// Handle interrupt signals. The audit stops and partial results are
	// reported as timed out.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	results, err := runScan(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}

	return checkThreshold(results, threshold)
}

// buildConfig creates a Config from defaults, the project file and the
// command flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	roots, err := projectRoots(args)
	if err != nil {
		return nil, err
	}
	cfg.Roots = roots

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	if err := applyConfigFile(cfg); err != nil {
		return nil, err
	}

	if err := applyScanFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFile = getLogFileFlag(cmd)
	cfg.DBDir = config.XDGDataDir()

	return cfg, nil
}

// applyScanFlags copies the flags the user set onto cfg. Flags left at
// their default do not override the project file.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("route-dir") {
		if cfg.RouteDir, err = flags.GetString("route-dir"); err != nil {
			return err
		}
	}
	if flags.Changed("allow") {
		allow, err := flags.GetStringSlice("allow")
		if err != nil {
			return err
		}
		cfg.Allowlist = append(cfg.Allowlist, allow...)
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return err
	}

	if flags.Changed("probe") {
		if cfg.Probe, err = flags.GetBool("probe"); err != nil {
			return err
		}
	}
	if flags.Changed("sample") {
		if cfg.ProbeSampleSize, err = flags.GetInt("sample"); err != nil {
			return err
		}
	}
	if flags.Changed("probe-concurrency") {
		if cfg.ProbeConcurrency, err = flags.GetInt("probe-concurrency"); err != nil {
			return err
		}
	}
	if flags.Changed("probe-timeout") {
		if cfg.ProbeTimeout, err = flags.GetDuration("probe-timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noSave

	return nil
}

// failThreshold parses --fail-on. It returns nil when the flag is unset.
func failThreshold(cmd *cobra.Command) (*model.Severity, error) {
	label, err := cmd.Flags().GetString("fail-on")
	if err != nil {
		return nil, err
	}
	if label == "" {
		return nil, nil
	}
	severity, err := model.ParseSeverity(label)
	if err != nil {
		return nil, fmt.Errorf("invalid --fail-on value: %w", err)
	}
	return &severity, nil
}

// checkThreshold returns ErrFindingsAtThreshold if any result has a
// finding at or above threshold. A nil threshold never fails.
func checkThreshold(results []*model.AuditResult, threshold *model.Severity) error {
	if threshold == nil {
		return nil
	}
	count := 0
	for _, result := range results {
		if result == nil {
			continue
		}
		for _, f := range result.Findings {
			if f.Severity >= *threshold {
				count++
			}
		}
	}
	if count > 0 {
		return fmt.Errorf("%w: %d finding(s) at %s or above", ErrFindingsAtThreshold, count, threshold.String())
	}
	return nil
}

// newPipeline creates the audit pipeline for cfg.
func newPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	patterns, err := cfg.Patterns()
	if err != nil {
		return nil, err
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineRouteDir(cfg.RouteDir),
		pipeline.WithPipelineRouteFiles(cfg.RouteFiles),
		pipeline.WithPipelineExtensions(cfg.Extensions),
		pipeline.WithPipelineExcludes(cfg.Excludes),
		pipeline.WithPipelineAllowlist(cfg.Allowlist),
		pipeline.WithPipelineExtraPatterns(patterns),
		pipeline.WithPipelineReadConcurrency(cfg.ReadConcurrency),
	}

	if cfg.Probe {
		configOpts = append(configOpts,
			pipeline.WithPipelineProbe(cfg.ProbeSampleSize, cfg.ProbeConcurrency, cfg.ProbeTimeout),
			pipeline.WithPipelineUserAgent(cfg.UserAgent),
		)
		if cfg.ProxyAddress != "" {
			client, err := probe.NewSOCKS5Client(cfg.ProxyAddress, cfg.ProbeTimeout)
			if err != nil {
				return nil, fmt.Errorf("failed to create proxy client: %w", err)
			}
			configOpts = append(configOpts, pipeline.WithPipelineHTTPClient(client))
		}
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
	}

	return pipeline.DefaultPipeline(pipelineOpts, configOpts...), nil
}

// runScan audits every root in cfg, writes the reports to stdout or the
// report file, and saves them to the history database.
func runScan(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) ([]*model.AuditResult, error) {
	logger.Info("starting audit",
		"projects", cfg.Roots,
		"probe", cfg.Probe,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Build once so configuration problems surface before any work starts.
	if _, err := newPipeline(cfg, logger); err != nil {
		return nil, err
	}

	var db *database.AuditDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	output, closeOutput, err := openReportOutput(cfg.ReportFile, stdout)
	if err != nil {
		return nil, err
	}
	defer closeOutput()

	writer := newReportWriter(cfg, output)

	var mu sync.Mutex
	handle := func(result *model.AuditResult) {
		mu.Lock()
		defer mu.Unlock()

		if result.ErrorMessage != "" {
			fmt.Fprintf(stderr, "Audit error for %s: %s\n", result.ProjectRoot, result.ErrorMessage)
		}
		if result.TimedOut {
			fmt.Fprintf(stderr, "Audit of %s was interrupted; the report is partial.\n", result.ProjectRoot)
		}

		if _, err := writer.Write(result); err != nil {
			logger.Error("report failed", "project", result.ProjectRoot, "error", err)
		}

		if err := saveAuditReport(ctx, db, result, logger); err != nil {
			logger.Error("failed to save audit report", "project", result.ProjectRoot, "error", err)
		}
	}

	startTime := time.Now()
	var results []*model.AuditResult
	if len(cfg.Roots) > 1 && cfg.BatchSize > 1 {
		results, err = runBatchScan(ctx, cfg, logger, handle)
	} else {
		results, err = runSequentialScan(ctx, cfg, logger, handle)
	}

	logger.Info("audit finished",
		"projects", len(cfg.Roots),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	if err != nil && !isContextError(err) {
		return results, err
	}
	return results, nil
}

// runSequentialScan audits roots one at a time.
func runSequentialScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, handle func(*model.AuditResult)) ([]*model.AuditResult, error) {
	results := make([]*model.AuditResult, 0, len(cfg.Roots))
	for _, root := range cfg.Roots {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		p, err := newPipeline(cfg, logger)
		if err != nil {
			return results, err
		}

		result := model.NewAuditResult(root)
		if err := p.Execute(ctx, result); err != nil {
			logger.Warn("audit failed", "project", root, "error", err)
		}

		handle(result)
		results = append(results, result)
	}
	return results, nil
}

// runBatchScan audits roots concurrently using BatchProcessor.
// Reports are emitted as audits complete.
func runBatchScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, handle func(*model.AuditResult)) ([]*model.AuditResult, error) {
	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			// Configuration was validated by runScan, so this cannot fail.
			p, err := newPipeline(cfg, logger)
			if err != nil {
				logger.Error("failed to build pipeline", "error", err)
				return pipeline.New(pipeline.WithLogger(logger))
			}
			return p
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	results := make([]*model.AuditResult, len(cfg.Roots))
	err := bp.ProcessBatchWithCallback(ctx, cfg.Roots, func(result *model.AuditResult, index int) {
		handle(result)
		results[index] = result
	})

	completed := make([]*model.AuditResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			completed = append(completed, r)
		}
	}
	return completed, err
}

// isContextError reports whether err is a cancellation or deadline error.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// openReportOutput returns the report destination: the file at path, or
// stdout when path is empty. Directories are created as needed.
func openReportOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list source paths and links, so keep them owner-readable.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { closeQuietly(f) }, nil
}

// newReportWriter returns the report writer for the selected format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// saveAuditReport saves the audit to the database if enabled.
// If db is nil, this function is a no-op. Saving is not cancelled with
// ctx so that interrupted audits are still recorded.
func saveAuditReport(ctx context.Context, db *database.AuditDB, result *model.AuditResult, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	doc := report.NewDocument(result, getVersion())
	id, err := db.SaveAuditReport(context.WithoutCancel(ctx), doc)
	if err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	logger.Info("audit report saved to database", "project", result.ProjectRoot, "id", id)
	return nil
}
