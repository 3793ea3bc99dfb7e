// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// The SecureHandler sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (tokens, keys)
//   - Credentials embedded in URLs, such as user:password@host or
//     ?token=... query parameters in audited links
//
// Even in verbose mode, sensitive values are masked so that logs can be
// shared or attached to CI runs.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("probe failed",
//	    "url", "https://api.example.com/v1?key=abc", // logged as ?key=REDACTED
//	)
//
// # Log files
//
// NewFileWriter returns a size-rotated writer for --log-file:
//
//	w, err := log.NewFileWriter(path, log.DefaultFileOptions())
//	logger := log.NewSecureJSONLogger(w, verbose)
package log
