// Package database provides SQLite-based storage for linkaudit.
//
// AuditDB stores every audit as a JSON report document together with its
// severity counts and fingerprint, so later runs can be compared against
// earlier ones. The store uses modernc.org/sqlite, which needs no cgo.
package database
