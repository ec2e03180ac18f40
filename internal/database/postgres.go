package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crawlscope/crawlscope/internal/analyzer"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements analyzer.Store on a Postgres pool.
type PostgresStore struct {
	pool  pgxPool
	table string
}

// NewPostgresStore connects a pool and ensures the reports table exists.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "analyses"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &PostgresStore{pool: pool, table: table}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing). The schema is assumed to exist.
func NewPostgresStoreWithPool(pool pgxPool, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "analyses"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	crawl_delay_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	allowed BOOLEAN NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	link_count INTEGER NOT NULL DEFAULT 0,
	is_js_heavy BOOLEAN NOT NULL,
	has_api BOOLEAN NOT NULL,
	feed_count INTEGER NOT NULL DEFAULT 0,
	recommendation TEXT NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	report JSONB NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save upserts the report, keyed by id.
func (s *PostgresStore) Save(ctx context.Context, report analyzer.AnalysisReport) error {
	if report.ID == "" {
		return errors.New("report id is required")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	row := report.Row()
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, url, crawl_delay_seconds, allowed, title, description,
	link_count, is_js_heavy, has_api, feed_count, recommendation,
	generated_at, report
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET report = EXCLUDED.report`, s.table)

	args := []any{
		row.ID, row.URL, row.CrawlDelaySeconds, row.Allowed, row.Title,
		row.Description, row.LinkCount, row.IsJSHeavy, row.HasAPI,
		row.FeedCount, string(row.Recommendation), row.GeneratedAt.UTC(),
		payload,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Get loads the full report by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (analyzer.AnalysisReport, error) {
	query := fmt.Sprintf(`SELECT report FROM %s WHERE id = $1`, s.table)
	var payload []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return analyzer.AnalysisReport{}, ErrReportNotFound
	}
	if err != nil {
		return analyzer.AnalysisReport{}, fmt.Errorf("select report: %w", err)
	}
	var report analyzer.AnalysisReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return analyzer.AnalysisReport{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, nil
}

// List returns all stored reports in flat row form, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]analyzer.ReportRow, error) {
	query := fmt.Sprintf(`
SELECT id, url, crawl_delay_seconds, allowed, title, description,
	link_count, is_js_heavy, has_api, feed_count, recommendation, generated_at
FROM %s
ORDER BY generated_at DESC`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer rows.Close()

	var out []analyzer.ReportRow
	for rows.Next() {
		var (
			row analyzer.ReportRow
			rec string
		)
		if err := rows.Scan(&row.ID, &row.URL, &row.CrawlDelaySeconds, &row.Allowed,
			&row.Title, &row.Description, &row.LinkCount, &row.IsJSHeavy,
			&row.HasAPI, &row.FeedCount, &rec, &row.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.Recommendation = analyzer.Recommendation(rec)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
