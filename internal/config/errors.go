package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() to tell them apart.
var (
	// ErrNoTarget is returned when no project root is specified.
	ErrNoTarget = errors.New("no target specified: provide a project root or use --batch")

	// ErrInvalidTimeout is returned when the run timeout is negative.
	// Use 0 to disable the deadline.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidReadConcurrency is returned when the file read concurrency is not positive.
	ErrInvalidReadConcurrency = errors.New("invalid read concurrency: must be positive")

	// ErrNoExtensions is returned when the scanned extension list is empty,
	// which would make every audit scan zero files.
	ErrNoExtensions = errors.New("no file extensions to scan")

	// ErrInvalidSampleSize is returned when probing is enabled with a
	// non-positive sample size.
	ErrInvalidSampleSize = errors.New("invalid probe sample size: must be positive")

	// ErrInvalidProbeConcurrency is returned when probing is enabled with a
	// non-positive concurrency.
	ErrInvalidProbeConcurrency = errors.New("invalid probe concurrency: must be positive")

	// ErrInvalidProbeTimeout is returned when probing is enabled with a
	// non-positive per-request timeout.
	ErrInvalidProbeTimeout = errors.New("invalid probe timeout: must be positive")

	// ErrInvalidPattern is returned when an extra extraction pattern does
	// not compile or does not have exactly one capture group.
	ErrInvalidPattern = errors.New("invalid extraction pattern")
)
