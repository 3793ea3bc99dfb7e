package config

import "time"

// PatternConfig is an extra extraction pattern from the project file.
// Regex must have exactly one capture group holding the link target.
type PatternConfig struct {
	// Name identifies the pattern in logs and errors.
	Name string `yaml:"name,omitempty"`

	// Regex is matched case-insensitively against file contents.
	Regex string `yaml:"regex"`
}

// ProbeConfig holds the external probe settings of the project file.
type ProbeConfig struct {
	// Enabled turns probing on without the --probe flag.
	Enabled bool `yaml:"enabled,omitempty"`

	// SampleSize is the number of external occurrences probed.
	SampleSize int `yaml:"sampleSize,omitempty"`

	// Concurrency is the number of probes in flight.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Timeout is the per-request timeout, e.g. "5s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Proxy is a SOCKS5 proxy address in "host:port" format.
	Proxy string `yaml:"proxy,omitempty"`

	// UserAgent overrides the default probe User-Agent.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .linkaudit project file.
// Every field is optional; unset fields keep the built-in defaults.
type File struct {
	// RouteDir is the route directory relative to the project root.
	RouteDir string `yaml:"routeDir,omitempty"`

	// RouteFiles replaces the route-defining file names.
	RouteFiles []string `yaml:"routeFiles,omitempty"`

	// Extensions replaces the scanned file extensions.
	Extensions []string `yaml:"extensions,omitempty"`

	// ExcludeDirs replaces the excluded path fragments.
	ExcludeDirs []string `yaml:"excludeDirs,omitempty"`

	// Allowlist adds paths that are always valid link targets.
	Allowlist []string `yaml:"allowlist,omitempty"`

	// ExtraPatterns adds extraction patterns after the built-in ones.
	ExtraPatterns []PatternConfig `yaml:"extraPatterns,omitempty"`

	// Probe holds the external probe settings.
	Probe ProbeConfig `yaml:"probe,omitempty"`
}
