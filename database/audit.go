package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// FillJobRecord is the persisted audit line for one fill job. It carries
// counts and timing only, never field values, so the audit trail stays free
// of candidate data.
type FillJobRecord struct {
	JobID           string
	URL             string
	FieldsFilled    int
	FieldsAttempted int
	Success         bool
	ElapsedMS       int64
	CreatedAt       time.Time
}

// AuditStore writes fill-job audit records.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// EnsureSchema creates the audit table when it does not exist yet.
func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fill_jobs (
			id SERIAL PRIMARY KEY,
			job_id TEXT NOT NULL UNIQUE,
			url TEXT NOT NULL,
			fields_filled INTEGER NOT NULL,
			fields_attempted INTEGER NOT NULL,
			success BOOLEAN NOT NULL,
			elapsed_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("could not ensure fill_jobs schema: %w", err)
	}
	return nil
}

// RecordFillJob inserts one audit row.
func (s *AuditStore) RecordFillJob(ctx context.Context, rec FillJobRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fill_jobs (job_id, url, fields_filled, fields_attempted, success, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.JobID, rec.URL, rec.FieldsFilled, rec.FieldsAttempted, rec.Success, rec.ElapsedMS, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not record fill job %s: %w", rec.JobID, err)
	}
	return nil
}

// RecentFillJobs returns the most recent audit rows, newest first.
func (s *AuditStore) RecentFillJobs(ctx context.Context, limit int) ([]FillJobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, url, fields_filled, fields_attempted, success, elapsed_ms, created_at
		FROM fill_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("could not query fill jobs: %w", err)
	}
	defer rows.Close()

	var out []FillJobRecord
	for rows.Next() {
		var rec FillJobRecord
		if err := rows.Scan(&rec.JobID, &rec.URL, &rec.FieldsFilled, &rec.FieldsAttempted,
			&rec.Success, &rec.ElapsedMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan fill job row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
