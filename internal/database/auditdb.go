package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/linkaudit/internal/report"
)

// FileName is the database file created inside the database directory.
const FileName = "linkaudit.db"

// AuditDB provides SQLite-based storage for audit reports.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a scan first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// Path returns the database file path.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		severity_summary TEXT,
		fingerprint TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_reports_project ON audit_reports(project);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON audit_reports(timestamp);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAuditReport stores a report document and returns its ID.
func (adb *AuditDB) SaveAuditReport(ctx context.Context, doc *report.Document) (int64, error) {
	reportJSON, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	severity := doc.Severity
	if severity == nil {
		severity = doc.Summary.SeverityCounts()
	}
	severityJSON, _ := json.Marshal(severity) //nolint:errcheck,errchkjson // map[string]int always marshals

	query := `
	INSERT INTO audit_reports (project, report_json, severity_summary, fingerprint)
	VALUES (?, ?, ?, ?)
	`

	result, err := adb.db.ExecContext(ctx, query,
		doc.Project,
		string(reportJSON),
		string(severityJSON),
		doc.Fingerprint,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save audit report: %w", err)
	}

	return result.LastInsertId()
}

// GetLatestAuditReport retrieves the most recent report for a project.
// Returns nil if the project has never been audited.
func (adb *AuditDB) GetLatestAuditReport(ctx context.Context, project string) (*report.Document, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE project = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, project).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	return decodeDocument(reportJSON)
}

// ListAuditedProjects returns every project with at least one stored report.
func (adb *AuditDB) ListAuditedProjects(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT project FROM audit_reports
	ORDER BY project
	`

	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var project string
		if err := rows.Scan(&project); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// GetAuditHistory retrieves all reports for a project, newest first.
// Malformed rows are skipped.
func (adb *AuditDB) GetAuditHistory(ctx context.Context, project string) ([]*report.Document, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE project = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := adb.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var docs []*report.Document
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		doc, err := decodeDocument(reportJSON)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// AuditReportMetadata contains summary information about a stored report.
// It is used for listing history without decoding full reports.
type AuditReportMetadata struct {
	// ID is the unique identifier of the report in the database.
	ID int64

	// Project is the audited project root.
	Project string

	// Timestamp is when the report was stored.
	Timestamp time.Time

	// SeveritySummary contains counts of findings by severity key.
	SeveritySummary map[string]int

	// Fingerprint identifies the audit content.
	Fingerprint string
}

// GetAuditHistoryWithMetadata retrieves report metadata for a project,
// newest first.
func (adb *AuditDB) GetAuditHistoryWithMetadata(ctx context.Context, project string) ([]AuditReportMetadata, error) {
	query := `
	SELECT id, project, timestamp, severity_summary, fingerprint
	FROM audit_reports
	WHERE project = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := adb.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var results []AuditReportMetadata
	for rows.Next() {
		var meta AuditReportMetadata
		var timestamp string
		var severityJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Project, &timestamp, &severityJSON, &meta.Fingerprint); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)

		meta.SeveritySummary = make(map[string]int)
		if severityJSON.Valid && severityJSON.String != "" {
			if err := json.Unmarshal([]byte(severityJSON.String), &meta.SeveritySummary); err != nil {
				meta.SeveritySummary = make(map[string]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetAuditReportByID retrieves a report by its database ID.
// Returns nil if no report has that ID.
func (adb *AuditDB) GetAuditReportByID(ctx context.Context, id int64) (*report.Document, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE id = ?
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	return decodeDocument(reportJSON)
}

// decodeDocument parses a stored report.
func decodeDocument(reportJSON string) (*report.Document, error) {
	var doc report.Document
	if err := json.Unmarshal([]byte(reportJSON), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &doc, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
