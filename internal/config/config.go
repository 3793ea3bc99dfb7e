package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/linkaudit/internal/extract"
	"github.com/nao1215/linkaudit/internal/probe"
	"github.com/nao1215/linkaudit/internal/route"
	"github.com/nao1215/linkaudit/internal/source"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "linkaudit"

	// DefaultTimeout bounds a whole audit run, probes included.
	// When it expires the audit stops and the partial result is
	// reported as timed out.
	DefaultTimeout = 10 * time.Minute

	// DefaultBatchSize is the number of project roots audited concurrently.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies probe traffic in the logs of linked sites.
	DefaultUserAgent = probe.DefaultUserAgent
)

// Config holds all configuration options for a linkaudit run.
// It is populated from defaults, then the project file, then CLI flags,
// and passed through the application rather than kept in global state.
type Config struct {
	// Roots are the project roots to audit. Batch mode audits several.
	Roots []string

	// ConfigFilePath is an explicit path to the project file.
	// If empty, .linkaudit is searched for in the project root, the
	// working directory and the home directory.
	ConfigFilePath string

	// RouteDir is the route directory relative to the project root.
	RouteDir string

	// RouteFiles are the file names that define a route.
	RouteFiles []string

	// Extensions are the scanned file extensions, with leading dot.
	Extensions []string

	// Excludes are path fragments that exclude a file from scanning.
	Excludes []string

	// Allowlist are extra paths that are always valid link targets.
	Allowlist []string

	// ExtraPatterns are extraction patterns applied after the built-in set.
	ExtraPatterns []PatternConfig

	// ReadConcurrency is the number of source files read in parallel.
	ReadConcurrency int

	// Verbose enables debug logging.
	Verbose bool

	// LogFile routes logs to a rotating file instead of stderr.
	LogFile string

	// JSONReport selects the JSON report. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown report.
	MarkdownReport bool

	// ReportFile is the output path for the report. Stdout when empty.
	ReportFile string

	// Probe enables HEAD probing of sampled external links.
	Probe bool

	// ProbeSampleSize is the number of external occurrences probed.
	ProbeSampleSize int

	// ProbeConcurrency is the number of probes in flight.
	ProbeConcurrency int

	// ProbeTimeout is the per-request probe timeout.
	ProbeTimeout time.Duration

	// ProxyAddress routes probes through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UserAgent is sent with every probe request.
	UserAgent string

	// Timeout bounds the whole run. Zero disables the deadline.
	Timeout time.Duration

	// BatchSize is the number of roots audited concurrently.
	BatchSize int

	// DBDir is the directory of the audit history database.
	// Defaults to the XDG data directory (~/.local/share/linkaudit on Linux).
	DBDir string

	// SaveToDB stores each audit in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		RouteDir:         route.DefaultRouteDir,
		RouteFiles:       append([]string(nil), route.DefaultRouteFiles...),
		Extensions:       append([]string(nil), source.DefaultExtensions...),
		Excludes:         append([]string(nil), source.DefaultExcludes...),
		ReadConcurrency:  source.DefaultConcurrency,
		ProbeSampleSize:  probe.DefaultSampleSize,
		ProbeConcurrency: probe.DefaultConcurrency,
		ProbeTimeout:     probe.DefaultTimeout,
		UserAgent:        DefaultUserAgent,
		Timeout:          DefaultTimeout,
		BatchSize:        DefaultBatchSize,
		DBDir:            XDGDataDir(),
		SaveToDB:         true,
	}
}

// ApplyFile overlays the values set in a project file onto c.
// Unset fields in the file leave c unchanged.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	if f.RouteDir != "" {
		c.RouteDir = f.RouteDir
	}
	if len(f.RouteFiles) > 0 {
		c.RouteFiles = f.RouteFiles
	}
	if len(f.Extensions) > 0 {
		c.Extensions = f.Extensions
	}
	if len(f.ExcludeDirs) > 0 {
		c.Excludes = f.ExcludeDirs
	}
	c.Allowlist = append(c.Allowlist, f.Allowlist...)
	c.ExtraPatterns = append(c.ExtraPatterns, f.ExtraPatterns...)

	p := f.Probe
	if p.Enabled {
		c.Probe = true
	}
	if p.SampleSize != 0 {
		c.ProbeSampleSize = p.SampleSize
	}
	if p.Concurrency != 0 {
		c.ProbeConcurrency = p.Concurrency
	}
	if p.Timeout != 0 {
		c.ProbeTimeout = p.Timeout
	}
	if p.Proxy != "" {
		c.ProxyAddress = p.Proxy
	}
	if p.UserAgent != "" {
		c.UserAgent = p.UserAgent
	}
}

// Patterns compiles ExtraPatterns.
func (c *Config) Patterns() ([]extract.Pattern, error) {
	patterns := make([]extract.Pattern, 0, len(c.ExtraPatterns))
	for i, pc := range c.ExtraPatterns {
		name := pc.Name
		if name == "" {
			name = fmt.Sprintf("extra-%d", i+1)
		}
		p, err := extract.NewPattern(name, pc.Regex)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// XDGDataDir returns the XDG data directory for linkaudit.
// On Linux: ~/.local/share/linkaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkaudit.
// On Linux: ~/.config/linkaudit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory, where log files live.
// On Linux: ~/.local/state/linkaudit
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return ErrNoTarget
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.ReadConcurrency <= 0 {
		return ErrInvalidReadConcurrency
	}
	if len(c.Extensions) == 0 {
		return ErrNoExtensions
	}
	if c.Probe {
		if c.ProbeSampleSize <= 0 {
			return ErrInvalidSampleSize
		}
		if c.ProbeConcurrency <= 0 {
			return ErrInvalidProbeConcurrency
		}
		if c.ProbeTimeout <= 0 {
			return ErrInvalidProbeTimeout
		}
	}
	if _, err := c.Patterns(); err != nil {
		return err
	}
	return nil
}
