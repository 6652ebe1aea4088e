// Package repository implements the domain ledger interface using SQLite.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"statement-worker/internal/domain"
)

var _ domain.Ledger = (*JobRepo)(nil)

// JobRepo stores statement job lifecycle state in SQLite. It is the ledger
// for the execution pipeline: merge-style partial updates, server-assigned
// timestamps, and records that are never deleted by the pipeline.
//
// Writes go through the serialized write pool; reads go through the
// concurrent read pool so status polling does not queue behind executor
// ledger writes.
type JobRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewJobRepo creates a JobRepo over a write/read pool pair. Both pools must
// point at the same ledger file.
func NewJobRepo(write, read *sql.DB) *JobRepo {
	return &JobRepo{write: write, read: read}
}

// CreateJob inserts a new job record. A missing handle is generated.
func (r *JobRepo) CreateJob(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if job == nil {
		return nil, domain.ErrValidation("job is required")
	}
	if job.Handle == "" {
		job.Handle = domain.NewHandle()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusQueued
	}

	_, err := r.write.ExecContext(ctx, `
		INSERT INTO jobs (handle, sql_text, submitted_by, status)
		VALUES (?, ?, ?, ?)
	`, job.Handle, job.SQLText, job.SubmittedBy, string(job.Status))
	if err != nil {
		return nil, mapDBError(err)
	}

	return r.GetJob(ctx, job.Handle)
}

// GetJob returns the ledger record for the given handle.
func (r *JobRepo) GetJob(ctx context.Context, handle string) (*domain.Job, error) {
	row := r.read.QueryRowContext(ctx, `
		SELECT handle, sql_text, submitted_by, status, error_message, total_rows,
		       columns_json, total_size_estimate, result_manifest_path, telemetry_json,
		       created_at, started_at, updated_at, finished_at
		FROM jobs WHERE handle = ?
	`, handle)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound("no job found for handle %q", handle)
		}
		return nil, mapDBError(err)
	}
	return job, nil
}

// UpdateJob applies a merge-style partial update: only fields supplied in
// the update change, and updated_at is assigned at call time.
func (r *JobRepo) UpdateJob(ctx context.Context, handle string, update domain.JobUpdate) error {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{}

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.Error != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *update.Error)
	}
	if update.TotalRows != nil {
		sets = append(sets, "total_rows = ?")
		args = append(args, *update.TotalRows)
	}
	if update.Columns != nil {
		columnsJSON, err := json.Marshal(update.Columns)
		if err != nil {
			return fmt.Errorf("marshal columns: %w", err)
		}
		sets = append(sets, "columns_json = ?")
		args = append(args, string(columnsJSON))
	}
	if update.TotalSizeEstimate != nil {
		sets = append(sets, "total_size_estimate = ?")
		args = append(args, *update.TotalSizeEstimate)
	}
	if update.ResultManifestPath != nil {
		sets = append(sets, "result_manifest_path = ?")
		args = append(args, *update.ResultManifestPath)
	}
	if update.Telemetry != nil {
		telemetryJSON, err := json.Marshal(update.Telemetry)
		if err != nil {
			return fmt.Errorf("marshal telemetry: %w", err)
		}
		sets = append(sets, "telemetry_json = ?")
		args = append(args, string(telemetryJSON))
	}
	if update.StartedAt != nil {
		sets = append(sets, "started_at = ?")
		args = append(args, update.StartedAt.UTC())
	}
	if update.FinishedAt != nil {
		sets = append(sets, "finished_at = ?")
		args = append(args, update.FinishedAt.UTC())
	}

	args = append(args, handle)
	res, err := r.write.ExecContext(ctx,
		`UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE handle = ?`, args...)
	if err != nil {
		return mapDBError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound("no job found for handle %q", handle)
	}
	return nil
}

// ListJobs returns the most recently created jobs, newest first.
func (r *JobRepo) ListJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.read.QueryContext(ctx, `
		SELECT handle, sql_text, submitted_by, status, error_message, total_rows,
		       columns_json, total_size_estimate, result_manifest_path, telemetry_json,
		       created_at, started_at, updated_at, finished_at
		FROM jobs ORDER BY created_at DESC, handle DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, mapDBError(err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job                        domain.Job
		status                     string
		errorMessage               sql.NullString
		columnsJSON, telemetryJSON sql.NullString
		startedAt, finishedAt      sql.NullTime
		createdAt, updatedAt       time.Time
	)

	err := row.Scan(
		&job.Handle,
		&job.SQLText,
		&job.SubmittedBy,
		&status,
		&errorMessage,
		&job.TotalRows,
		&columnsJSON,
		&job.TotalSizeEstimate,
		&job.ResultManifestPath,
		&telemetryJSON,
		&createdAt,
		&startedAt,
		&updatedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(status)
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt
	if errorMessage.Valid {
		msg := errorMessage.String
		job.Error = &msg
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	if columnsJSON.Valid && columnsJSON.String != "" {
		if err := json.Unmarshal([]byte(columnsJSON.String), &job.Columns); err != nil {
			return nil, fmt.Errorf("unmarshal columns: %w", err)
		}
	}
	if telemetryJSON.Valid && telemetryJSON.String != "" {
		if err := json.Unmarshal([]byte(telemetryJSON.String), &job.Telemetry); err != nil {
			return nil, fmt.Errorf("unmarshal telemetry: %w", err)
		}
	}

	return &job, nil
}

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrValidation("job already exists")
	}
	return err
}
