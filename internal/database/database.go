package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
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
	return pool, nil
}

// Schema is the ledger DDL applied by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS seals (
	id TEXT PRIMARY KEY,
	original_filename TEXT NOT NULL,
	download_name TEXT NOT NULL,
	object_key TEXT NOT NULL,
	verify_url TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	audit_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_seals_status ON seals(status);`

// EnsureSchema creates the seals table if needed.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
