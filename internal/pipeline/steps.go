package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/nao1215/linkaudit/internal/classify"
	"github.com/nao1215/linkaudit/internal/extract"
	"github.com/nao1215/linkaudit/internal/model"
	"github.com/nao1215/linkaudit/internal/probe"
	"github.com/nao1215/linkaudit/internal/reconcile"
	"github.com/nao1215/linkaudit/internal/route"
	"github.com/nao1215/linkaudit/internal/source"
)

// Step names as recorded in AuditResult.PerformedSteps.
const (
	StepRoutes    = "routes"
	StepExtract   = "extract"
	StepClassify  = "classify"
	StepReconcile = "reconcile"
	StepProbe     = "probe"
)

// RouteStep builds the route set from the project's route directory.
type RouteStep struct {
	index    *route.Index
	routeDir string
}

// NewRouteStep creates a RouteStep. routeDir is relative to the project
// root; an empty value selects route.DefaultRouteDir.
func NewRouteStep(index *route.Index, routeDir string) *RouteStep {
	if index == nil {
		index = route.NewIndex()
	}
	if routeDir == "" {
		routeDir = route.DefaultRouteDir
	}
	return &RouteStep{index: index, routeDir: routeDir}
}

// Name returns the step name.
func (s *RouteStep) Name() string {
	return StepRoutes
}

// Do builds the route set. A missing route directory yields no routes.
func (s *RouteStep) Do(_ context.Context, result *model.AuditResult) error {
	result.Routes = s.index.Build(filepath.Join(result.ProjectRoot, s.routeDir))
	return nil
}

// ExtractStep reads the project's source files and extracts every link.
type ExtractStep struct {
	reader    *source.Reader
	extractor *extract.Extractor
	logger    *slog.Logger
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(reader *source.Reader, extractor *extract.Extractor, logger *slog.Logger) *ExtractStep {
	if reader == nil {
		reader = source.NewReader()
	}
	if extractor == nil {
		extractor = extract.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStep{reader: reader, extractor: extractor, logger: logger}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return StepExtract
}

// Do reads every source file and appends the extracted occurrences in file
// order. Unreadable files become diagnostics.
func (s *ExtractStep) Do(ctx context.Context, result *model.AuditResult) error {
	files, diags, err := s.reader.Read(ctx, result.ProjectRoot)
	result.Diagnostics = append(result.Diagnostics, diags...)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.TimedOut = true
		}
		return fmt.Errorf("failed to read sources: %w", err)
	}

	for _, f := range files {
		result.Occurrences = append(result.Occurrences, s.extractor.Extract(f.Content, f.Path)...)
	}
	result.FilesScanned = len(files)

	s.logger.Debug("links extracted",
		"project", result.ProjectRoot,
		"files", len(files),
		"links", len(result.Occurrences),
		"diagnostics", len(diags),
	)
	return nil
}

// ClassifyStep places every extracted occurrence into its category bucket.
type ClassifyStep struct{}

// NewClassifyStep creates a ClassifyStep.
func NewClassifyStep() *ClassifyStep {
	return &ClassifyStep{}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return StepClassify
}

// Do partitions result.Occurrences.
func (s *ClassifyStep) Do(_ context.Context, result *model.AuditResult) error {
	classify.Partition(result, result.Occurrences)
	return nil
}

// ReconcileStep checks internal links against the route set.
type ReconcileStep struct {
	reconciler *reconcile.Reconciler
}

// NewReconcileStep creates a ReconcileStep.
func NewReconcileStep(reconciler *reconcile.Reconciler) *ReconcileStep {
	if reconciler == nil {
		reconciler = reconcile.New()
	}
	return &ReconcileStep{reconciler: reconciler}
}

// Name returns the step name.
func (s *ReconcileStep) Name() string {
	return StepReconcile
}

// Do fills the valid and broken lists and records a critical finding per
// broken link.
func (s *ReconcileStep) Do(_ context.Context, result *model.AuditResult) error {
	res := s.reconciler.Reconcile(result.Internal, result.Routes)
	result.Valid = res.Valid
	result.Broken = res.Broken
	result.AddFindings(res.Findings...)
	return nil
}

// ProbeStep checks a sample of external links over the network.
type ProbeStep struct {
	prober *probe.Prober
	logger *slog.Logger
}

// NewProbeStep creates a ProbeStep.
func NewProbeStep(prober *probe.Prober, logger *slog.Logger) *ProbeStep {
	if prober == nil {
		prober = probe.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProbeStep{prober: prober, logger: logger}
}

// Name returns the step name.
func (s *ProbeStep) Name() string {
	return StepProbe
}

// Do probes the external sample. Cancellation keeps the findings of
// completed probes and marks the result as timed out.
func (s *ProbeStep) Do(ctx context.Context, result *model.AuditResult) error {
	findings, err := s.prober.Probe(ctx, result.External)
	result.AddFindings(findings...)
	if err != nil {
		s.logger.Warn("external probe interrupted",
			"project", result.ProjectRoot,
			"completed_findings", len(findings),
			"error", err,
		)
		result.TimedOut = true
	}
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// RouteDir is the route directory relative to the project root.
	RouteDir string

	// RouteFiles are the file names that define a route.
	RouteFiles []string

	// Extensions are the scanned file extensions.
	Extensions []string

	// Excludes are path fragments excluded from scanning.
	Excludes []string

	// Allowlist are paths that are always valid.
	Allowlist []string

	// ExtraPatterns are applied after the built-in extraction patterns.
	ExtraPatterns []extract.Pattern

	// ReadConcurrency is the number of files read in parallel.
	ReadConcurrency int

	// Probe enables the external link probe.
	Probe bool

	// ProbeSampleSize is how many external occurrences are probed.
	ProbeSampleSize int

	// ProbeConcurrency is the number of probes in flight.
	ProbeConcurrency int

	// ProbeTimeout is the per-request timeout.
	ProbeTimeout time.Duration

	// HTTPClient is used for probes when set, e.g. a SOCKS5 client.
	HTTPClient *http.Client

	// UserAgent is sent with probe requests.
	UserAgent string
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineRouteDir sets the route directory.
func WithPipelineRouteDir(dir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.RouteDir = dir
	}
}

// WithPipelineRouteFiles sets the route-defining file names.
func WithPipelineRouteFiles(names []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.RouteFiles = names
	}
}

// WithPipelineExtensions sets the scanned file extensions.
func WithPipelineExtensions(exts []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Extensions = exts
	}
}

// WithPipelineExcludes sets the excluded path fragments.
func WithPipelineExcludes(excludes []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Excludes = excludes
	}
}

// WithPipelineAllowlist adds always-valid paths.
func WithPipelineAllowlist(paths []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Allowlist = paths
	}
}

// WithPipelineExtraPatterns adds extraction patterns.
func WithPipelineExtraPatterns(patterns []extract.Pattern) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ExtraPatterns = patterns
	}
}

// WithPipelineReadConcurrency sets the number of files read in parallel.
func WithPipelineReadConcurrency(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ReadConcurrency = n
	}
}

// WithPipelineProbe enables the external probe with the given sample size,
// concurrency and per-request timeout. Zero values keep the defaults.
func WithPipelineProbe(sampleSize, concurrency int, timeout time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Probe = true
		c.ProbeSampleSize = sampleSize
		c.ProbeConcurrency = concurrency
		c.ProbeTimeout = timeout
	}
}

// WithPipelineHTTPClient sets the HTTP client used for probes.
func WithPipelineHTTPClient(client *http.Client) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.HTTPClient = client
	}
}

// WithPipelineUserAgent sets the User-Agent sent with probe requests.
func WithPipelineUserAgent(ua string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = ua
	}
}

// DefaultPipeline creates a pipeline with every audit step in order.
// The probe step is only added when enabled in the configuration.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineRouteDir, etc).
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		RouteDir:        route.DefaultRouteDir,
		RouteFiles:      route.DefaultRouteFiles,
		Extensions:      source.DefaultExtensions,
		Excludes:        source.DefaultExcludes,
		ReadConcurrency: source.DefaultConcurrency,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	index := route.NewIndex(
		route.WithRouteFiles(cfg.RouteFiles),
		route.WithLogger(p.logger),
	)
	reader := source.NewReader(
		source.WithExtensions(cfg.Extensions...),
		source.WithExcludes(cfg.Excludes...),
		source.WithConcurrency(cfg.ReadConcurrency),
		source.WithLogger(p.logger),
	)
	extractor := extract.New(extract.WithExtraPatterns(cfg.ExtraPatterns...))
	reconciler := reconcile.New(reconcile.WithAllowlist(cfg.Allowlist...))

	p.Append(
		NewRouteStep(index, cfg.RouteDir),
		NewExtractStep(reader, extractor, p.logger),
		NewClassifyStep(),
		NewReconcileStep(reconciler),
	)

	if cfg.Probe {
		prober := probe.New(
			probe.WithSampleSize(cfg.ProbeSampleSize),
			probe.WithConcurrency(cfg.ProbeConcurrency),
			probe.WithTimeout(cfg.ProbeTimeout),
			probe.WithHTTPClient(cfg.HTTPClient),
			probe.WithUserAgent(cfg.UserAgent),
			probe.WithLogger(p.logger),
		)
		p.Append(NewProbeStep(prober, p.logger))
	}

	return p
}
