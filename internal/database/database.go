// Package database owns the Postgres connection pool and the schema
// bootstrap used by the postgres store backend.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN. The pool is
// safe for concurrent use and hands out connections per query, so one pool is
// shared by every request. A ping verifies the server is reachable before the
// gateway starts accepting uploads.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		// The pool already holds open connections; close them before
		// reporting the failure.
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Schema is the bootstrap DDL for the videos table. Column names mirror the
// record's JSON attributes; owner columns are prefixed to avoid clashing with
// the id_video key.
const Schema = `
CREATE TABLE IF NOT EXISTS videos (
	id_video TEXT PRIMARY KEY,
	titulo TEXT NOT NULL,
	autor TEXT NOT NULL,
	status TEXT NOT NULL,
	file_path TEXT NOT NULL,
	data_criacao TIMESTAMPTZ NOT NULL,
	data_upload TIMESTAMPTZ NOT NULL,
	owner_id TEXT,
	owner_username TEXT,
	owner_email TEXT,
	zip_path TEXT,
	s3_key_zip TEXT
);
CREATE INDEX IF NOT EXISTS idx_videos_owner ON videos(owner_id);`

// EnsureSchema creates the videos table if needed. It is not a migration
// tool: existing tables are left untouched.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
