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

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/crawlscope/crawlscope/internal/analyzer"
)

// ErrReportNotFound is returned by Get when no report has the given id.
var ErrReportNotFound = errors.New("report not found")

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	crawl_delay_seconds REAL NOT NULL DEFAULT 0,
	allowed INTEGER NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	link_count INTEGER NOT NULL DEFAULT 0,
	is_js_heavy INTEGER NOT NULL,
	has_api INTEGER NOT NULL,
	feed_count INTEGER NOT NULL DEFAULT 0,
	recommendation TEXT NOT NULL,
	generated_at TEXT NOT NULL,
	report TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_generated_at ON analyses(generated_at);
`

// SQLiteStore implements analyzer.Store on a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens or creates the database at dbPath, creating parent
// directories as needed.
func OpenSQLite(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite supports one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Save inserts or replaces the report, keyed by id.
func (s *SQLiteStore) Save(ctx context.Context, report analyzer.AnalysisReport) error {
	if report.ID == "" {
		return errors.New("report id is required")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	row := report.Row()
	_, err = s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO analyses (
	id, url, crawl_delay_seconds, allowed, title, description,
	link_count, is_js_heavy, has_api, feed_count, recommendation,
	generated_at, report
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.URL, row.CrawlDelaySeconds, row.Allowed, row.Title,
		row.Description, row.LinkCount, row.IsJSHeavy, row.HasAPI,
		row.FeedCount, string(row.Recommendation),
		row.GeneratedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Get loads the full report by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (analyzer.AnalysisReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM analyses WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return analyzer.AnalysisReport{}, ErrReportNotFound
	}
	if err != nil {
		return analyzer.AnalysisReport{}, fmt.Errorf("select report: %w", err)
	}
	var report analyzer.AnalysisReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return analyzer.AnalysisReport{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, nil
}

// List returns all stored reports in flat row form, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]analyzer.ReportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, url, crawl_delay_seconds, allowed, title, description,
	link_count, is_js_heavy, has_api, feed_count, recommendation, generated_at
FROM analyses
ORDER BY generated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer rows.Close()

	var out []analyzer.ReportRow
	for rows.Next() {
		var (
			row         analyzer.ReportRow
			rec         string
			generatedAt string
		)
		if err := rows.Scan(&row.ID, &row.URL, &row.CrawlDelaySeconds, &row.Allowed,
			&row.Title, &row.Description, &row.LinkCount, &row.IsJSHeavy,
			&row.HasAPI, &row.FeedCount, &rec, &generatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.Recommendation = analyzer.Recommendation(rec)
		ts, err := time.Parse(time.RFC3339Nano, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse generated_at: %w", err)
		}
		row.GeneratedAt = ts
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
