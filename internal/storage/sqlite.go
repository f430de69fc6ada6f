// Package storage keeps a local SQLite history of generated reports.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/olegiv/logreport-ai-go/internal/logging"
	_ "modernc.org/sqlite"
)

// Storage handles database operations
type Storage struct {
	db  *sql.DB
	log *logging.SecureLogger
}

// ReportRecord is one saved report and the run that produced it
type ReportRecord struct {
	ID              int64
	RunID           string
	Timestamp       time.Time
	FileName        string
	LogFiles        []string
	TotalBytes      int64
	Model           string
	TemplateName    string
	DurationSeconds float64
}

// Statistics summarizes the report history
type Statistics struct {
	TotalReports  int
	TotalBytes    int64
	LastReportAt  time.Time
	ModelsUsed    map[string]int
	TemplatesUsed map[string]int
}

// Database configuration constants
const (
	// busyTimeoutMs is how long SQLite waits when database is locked (5 seconds)
	busyTimeoutMs = 5000
	// maxOpenConns limits concurrent connections (SQLite works best with 1)
	maxOpenConns = 1
	// maxIdleConns is the number of idle connections to keep
	maxIdleConns = 1
	// connMaxLifetime is how long a connection can be reused
	connMaxLifetime = 30 * time.Minute
)

// New opens (or creates) the history database at dbPath
func New(dbPath string, log *logging.SecureLogger) (*Storage, error) {
	if log == nil {
		log = logging.Nop()
	}

	// Create directory if it doesn't exist (0700 for security - owner only)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// The _busy_timeout pragma prevents "database is locked" errors by waiting
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", dbPath, busyTimeoutMs)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	storage := &Storage{db: db, log: log}

	if err := storage.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// timestampLayout is fixed width so that stored UTC timestamps sort lexically
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// currentSchemaVersion is the latest schema version.
// Increment this when adding new migrations.
const currentSchemaVersion = 1

// initSchema creates the database schema if it doesn't exist
func (s *Storage) initSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	return s.migrateSchema(s.getSchemaVersion())
}

// getSchemaVersion returns the current schema version (0 if not set)
func (s *Storage) getSchemaVersion() int {
	var version int
	if err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
		return 0
	}
	return version
}

// setSchemaVersion updates the schema version
func (s *Storage) setSchemaVersion(version int) error {
	// Delete existing and insert new (simpler than upsert for single row)
	if _, err := s.db.Exec(`DELETE FROM schema_version`); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, version)
	return err
}

// migrateSchema runs migrations from currentVersion to latest
func (s *Storage) migrateSchema(currentVersion int) error {
	if currentVersion >= currentSchemaVersion {
		return nil
	}

	s.log.Info().
		Int("from", currentVersion).
		Int("to", currentSchemaVersion).
		Msg("Migrating history schema")

	if currentVersion < 1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	}

	if err := s.setSchemaVersion(currentSchemaVersion); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return nil
}

// migrateV1 creates the reports table
func (s *Storage) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		file_name TEXT NOT NULL,
		log_files TEXT NOT NULL,
		total_bytes INTEGER DEFAULT 0,
		model TEXT NOT NULL DEFAULT '',
		template_name TEXT NOT NULL DEFAULT '',
		duration_seconds REAL DEFAULT 0.0
	);

	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON reports(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveReport records a saved report and sets its ID
func (s *Storage) SaveReport(record *ReportRecord) error {
	logFilesJSON, err := json.Marshal(record.LogFiles)
	if err != nil {
		return fmt.Errorf("failed to marshal log files: %w", err)
	}

	result, err := s.db.Exec(`
		INSERT INTO reports (
			run_id, timestamp, file_name, log_files, total_bytes,
			model, template_name, duration_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.RunID,
		record.Timestamp.UTC().Format(timestampLayout),
		record.FileName,
		string(logFilesJSON),
		record.TotalBytes,
		record.Model,
		record.TemplateName,
		record.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// RecentReports returns up to limit records, newest first. A non-positive limit returns all.
func (s *Storage) RecentReports(limit int) ([]*ReportRecord, error) {
	query := `
		SELECT id, run_id, timestamp, file_name, log_files, total_bytes,
		       model, template_name, duration_seconds
		FROM reports
		ORDER BY timestamp DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close database rows")
		}
	}(rows)

	var records []*ReportRecord
	for rows.Next() {
		record, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// CleanupOldReports deletes records older than N days. Report files are left on disk.
func (s *Storage) CleanupOldReports(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days).UTC().Format(timestampLayout)

	result, err := s.db.Exec(`DELETE FROM reports WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old reports: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

// GetStatistics returns totals and per-model/per-template counts
func (s *Storage) GetStatistics() (*Statistics, error) {
	stats := &Statistics{
		ModelsUsed:    make(map[string]int),
		TemplatesUsed: make(map[string]int),
	}

	var last sql.NullString
	err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(total_bytes), 0), MAX(timestamp) FROM reports`).
		Scan(&stats.TotalReports, &stats.TotalBytes, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	if last.Valid {
		ts, err := time.Parse(timestampLayout, last.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		stats.LastReportAt = ts.Local()
	}

	if err := s.countBy(`model`, stats.ModelsUsed); err != nil {
		return nil, err
	}
	if err := s.countBy(`template_name`, stats.TemplatesUsed); err != nil {
		return nil, err
	}

	return stats, nil
}

// countBy fills dist with per-value counts of a reports column
func (s *Storage) countBy(column string, dist map[string]int) error {
	rows, err := s.db.Query(`SELECT ` + column + `, COUNT(*) FROM reports GROUP BY ` + column)
	if err != nil {
		return fmt.Errorf("failed to group by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return fmt.Errorf("failed to scan %s counts: %w", column, err)
		}
		dist[value] = count
	}
	return rows.Err()
}

// scanReport scans a database row into a ReportRecord
func scanReport(rows *sql.Rows) (*ReportRecord, error) {
	var (
		record       ReportRecord
		timestamp    string
		logFilesJSON string
	)

	err := rows.Scan(
		&record.ID, &record.RunID, &timestamp, &record.FileName, &logFilesJSON,
		&record.TotalBytes, &record.Model, &record.TemplateName, &record.DurationSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	ts, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	record.Timestamp = ts.Local()

	if err := json.Unmarshal([]byte(logFilesJSON), &record.LogFiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal log files: %w", err)
	}

	return &record, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
