// Package report renders audit results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text output for terminal display
//   - JSONWriter: structured JSON output for tool integration and history
//   - MarkdownWriter: a Markdown document for sharing or committing
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
