package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/example/calendar-bridge/internal/persistence"
)

const syncJobColumns = `id, connection_id, type, status, progress, processed,
	created, updated, deleted, errors, started_at, completed_at,
	created_at, updated_at`

// CreateSyncJob inserts a new sync job row.
func (s *Store) CreateSyncJob(ctx context.Context, job persistence.SyncJob) error {
	jobErrors, err := json.Marshal(job.Errors)
	if err != nil {
		return fmt.Errorf("sqlite: encode job errors: %w", err)
	}

	query := `INSERT INTO sync_jobs (` + syncJobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.ConnectionID,
		string(job.Type),
		string(job.Status),
		job.Progress,
		job.Processed,
		job.Created,
		job.Updated,
		job.Deleted,
		string(jobErrors),
		formatTimePtr(job.StartedAt),
		formatTimePtr(job.CompletedAt),
		formatTime(job.CreatedAt),
		formatTime(job.UpdatedAt),
	)
	return mapError(err)
}

// GetSyncJob retrieves a sync job by ID.
func (s *Store) GetSyncJob(ctx context.Context, id string) (persistence.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs WHERE id = ?`
	job, err := scanSyncJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.SyncJob{}, persistence.ErrNotFound
	}
	return job, err
}

// UpdateSyncJob replaces an existing sync job row.
func (s *Store) UpdateSyncJob(ctx context.Context, job persistence.SyncJob) error {
	jobErrors, err := json.Marshal(job.Errors)
	if err != nil {
		return fmt.Errorf("sqlite: encode job errors: %w", err)
	}

	query := `UPDATE sync_jobs SET
		connection_id = ?, type = ?, status = ?, progress = ?, processed = ?,
		created = ?, updated = ?, deleted = ?, errors = ?,
		started_at = ?, completed_at = ?, created_at = ?, updated_at = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		job.ConnectionID,
		string(job.Type),
		string(job.Status),
		job.Progress,
		job.Processed,
		job.Created,
		job.Updated,
		job.Deleted,
		string(jobErrors),
		formatTimePtr(job.StartedAt),
		formatTimePtr(job.CompletedAt),
		formatTime(job.CreatedAt),
		formatTime(job.UpdatedAt),
		job.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// ListSyncJobs returns jobs matching the filter ordered by creation time,
// then ID.
func (s *Store) ListSyncJobs(ctx context.Context, filter persistence.SyncJobFilter) ([]persistence.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs`
	var clauses []string
	var args []any

	if filter.ConnectionID != "" {
		clauses = append(clauses, "connection_id = ?")
		args = append(args, filter.ConnectionID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query += whereClause(clauses) + " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var jobs []persistence.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanSyncJob(row rowScanner) (persistence.SyncJob, error) {
	var (
		job                    persistence.SyncJob
		jobType                string
		status                 string
		jobErrors              string
		startedAt, completedAt sql.NullString
		createdAt              string
		updatedAt              string
	)

	err := row.Scan(
		&job.ID,
		&job.ConnectionID,
		&jobType,
		&status,
		&job.Progress,
		&job.Processed,
		&job.Created,
		&job.Updated,
		&job.Deleted,
		&jobErrors,
		&startedAt,
		&completedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.SyncJob{}, err
	}

	job.Type = persistence.SyncType(jobType)
	job.Status = persistence.SyncJobStatus(status)
	if err = json.Unmarshal([]byte(jobErrors), &job.Errors); err != nil {
		return persistence.SyncJob{}, fmt.Errorf("sqlite: decode job errors: %w", err)
	}
	if job.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return persistence.SyncJob{}, err
	}
	if job.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return persistence.SyncJob{}, err
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.SyncJob{}, err
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.SyncJob{}, err
	}
	return job, nil
}
