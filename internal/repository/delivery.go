// Package repository provides persistence implementations for the stub
// endpoint's delivery log.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/formrelay/internal/models"
)

// recentLimit caps an unfiltered listing.
const recentLimit = 100

// PostgresDeliveryRepository stores deliveries in PostgreSQL.
type PostgresDeliveryRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresDeliveryRepository creates a repository on top of db.
// db must be a valid connection to a PostgreSQL instance with the schema from package db.
func NewPostgresDeliveryRepository(db *sql.DB) *PostgresDeliveryRepository {
	return &PostgresDeliveryRepository{DB: db}
}

// Record inserts one delivery.
func (r *PostgresDeliveryRepository) Record(ctx context.Context, d models.Delivery) error {
	fields, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO deliveries (id, submission_id, method, action, fields, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.SubmissionID, d.Method, d.Action, fields, d.ReceivedAt)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// List returns the deliveries of one submission in arrival order, or the
// most recent deliveries when submissionID is empty.
func (r *PostgresDeliveryRepository) List(ctx context.Context, submissionID string) ([]models.Delivery, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if submissionID != "" {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT id, submission_id, method, action, fields, received_at FROM deliveries
			WHERE submission_id = $1 ORDER BY received_at
		`, submissionID)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT id, submission_id, method, action, fields, received_at FROM deliveries
			ORDER BY received_at DESC LIMIT $1
		`, recentLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []models.Delivery
	for rows.Next() {
		var (
			d      models.Delivery
			fields []byte
		)
		if err := rows.Scan(&d.ID, &d.SubmissionID, &d.Method, &d.Action, &fields, &d.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(fields, &d.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal fields: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return out, nil
}

// Forget deletes every delivery of the given submissions.
func (r *PostgresDeliveryRepository) Forget(ctx context.Context, submissionIDs []string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM deliveries WHERE submission_id = ANY($1)`,
		pq.Array(submissionIDs),
	)
	if err != nil {
		return 0, fmt.Errorf("forget deliveries: %w", err)
	}
	return res.RowsAffected()
}

// PurgeBefore deletes deliveries received before cutoff.
func (r *PostgresDeliveryRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM deliveries WHERE received_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge deliveries: %w", err)
	}
	return res.RowsAffected()
}
