package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkaudit/internal/log"
)

// NewRootCmd creates the root command for linkaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkaudit",
		Short: "Static hyperlink auditor for file-system-routed web projects",
		Long: `linkaudit audits the links of a web project whose URL routes are defined
by its directory layout (for example a Next.js app directory).

It derives the routes the application serves, extracts every link from the
project sources, classifies them, and reports internal links that point to
routes that do not exist. External links can optionally be probed.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "",
		"Write logs to a rotating file instead of stderr")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewRoutesCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFileFlag retrieves the log file path from the command or its parent.
func getLogFileFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("log-file")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("log-file")
		if err != nil {
			return ""
		}
	}
	return path
}

// setupLogger creates the secure logger for a command. Logs go to stderr
// as text, or to a rotating JSON log file when --log-file is set.
// The returned cleanup function closes the log file.
func setupLogger(cmd *cobra.Command) (*slog.Logger, func(), error) {
	verbose := getVerboseFlag(cmd)

	path := getLogFileFlag(cmd)
	if path == "" {
		return log.NewSecureLogger(cmd.ErrOrStderr(), verbose), func() {}, nil
	}

	w, err := log.NewFileWriter(path, log.DefaultFileOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return log.NewSecureJSONLogger(w, verbose), func() { closeQuietly(w) }, nil
}

// closeQuietly closes c, ignoring the error. Used for best-effort cleanup.
func closeQuietly(c io.Closer) {
	_ = c.Close() //nolint:errcheck // best effort cleanup
}
