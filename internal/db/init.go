// Package db bootstraps the delivery log schema and purges expired deliveries.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const connectTimeout = 5 * time.Second

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS deliveries (
    id TEXT PRIMARY KEY,
    submission_id TEXT NOT NULL,
    method TEXT NOT NULL,
    action TEXT NOT NULL,
    fields JSONB NOT NULL,
    received_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS deliveries_submission_id_idx ON deliveries (submission_id)`,
	`CREATE INDEX IF NOT EXISTS deliveries_received_at_idx ON deliveries (received_at)`,
}

// InitPostgres connects to dsn and brings the delivery log schema up to date.
func InitPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// Migrate creates the deliveries table and its indexes in one transaction.
func Migrate(ctx context.Context, conn *sql.DB) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create schema (step %d): %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
