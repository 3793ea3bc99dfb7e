package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings for log files.
const (
	// DefaultMaxSizeMB is the size at which a log file is rotated.
	DefaultMaxSizeMB = 10

	// DefaultMaxBackups is the number of rotated files kept.
	DefaultMaxBackups = 3

	// DefaultMaxAgeDays is how long rotated files are kept.
	DefaultMaxAgeDays = 28
)

// FileOptions controls log file rotation.
type FileOptions struct {
	// MaxSizeMB is the size in megabytes at which the file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int

	// MaxAgeDays is the number of days rotated files are kept.
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool
}

// DefaultFileOptions returns the default rotation settings.
func DefaultFileOptions() FileOptions {
	return FileOptions{
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   true,
	}
}

// NewFileWriter returns a rotating writer for path. The parent directory
// is created if it does not exist. Callers must Close the writer.
func NewFileWriter(path string, opts FileOptions) (io.WriteCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}, nil
}
