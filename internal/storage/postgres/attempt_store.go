// Package postgres records upstream news fetch attempts in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/ocean-news/internal/news"
)

const defaultTable = "news_fetch_attempts"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool and target table.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// AttemptStore appends fetch attempts to a table and reads them back.
type AttemptStore struct {
	pool  pool
	table string
}

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*AttemptStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
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
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool wraps an existing pool (pgxmock in tests).
func NewWithPool(p pool, table string) (*AttemptStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &AttemptStore{pool: p, table: table}, nil
}

// Close releases the pool.
func (s *AttemptStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the attempts table if it does not exist.
func (s *AttemptStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id            TEXT PRIMARY KEY,
	attempted_at  TIMESTAMPTZ NOT NULL,
	day           DATE NOT NULL,
	source        TEXT NOT NULL,
	success       BOOLEAN NOT NULL,
	article_count INTEGER NOT NULL DEFAULT 0,
	error_text    TEXT
);
CREATE INDEX IF NOT EXISTS %[1]s_day_idx ON %[1]s (day, attempted_at DESC);`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// RecordAttempt inserts one attempt row.
func (s *AttemptStore) RecordAttempt(ctx context.Context, a news.FetchAttempt) error {
	if a.ID == "" {
		return errors.New("attempt id is required")
	}
	var errText *string
	if a.ErrorText != "" {
		errText = &a.ErrorText
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, attempted_at, day, source, success, article_count, error_text)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.table)
	_, err := s.pool.Exec(ctx, query,
		a.ID,
		a.AttemptedAt,
		a.Day,
		string(a.Source),
		a.Success,
		a.ArticleCount,
		errText,
	)
	if err != nil {
		return fmt.Errorf("insert fetch attempt: %w", err)
	}
	return nil
}

// Recent returns the newest attempts for day, newest first.
func (s *AttemptStore) Recent(ctx context.Context, day string, limit int) ([]news.FetchAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
SELECT id, attempted_at, day::text, source, success, article_count, COALESCE(error_text, '')
FROM %s
WHERE day = $1
ORDER BY attempted_at DESC
LIMIT $2`, s.table)
	rows, err := s.pool.Query(ctx, query, day, limit)
	if err != nil {
		return nil, fmt.Errorf("query fetch attempts: %w", err)
	}
	defer rows.Close()

	var out []news.FetchAttempt
	for rows.Next() {
		var (
			a      news.FetchAttempt
			source string
		)
		if err := rows.Scan(&a.ID, &a.AttemptedAt, &a.Day, &source, &a.Success, &a.ArticleCount, &a.ErrorText); err != nil {
			return nil, fmt.Errorf("scan fetch attempt: %w", err)
		}
		a.Source = news.Source(source)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fetch attempts: %w", err)
	}
	return out, nil
}
