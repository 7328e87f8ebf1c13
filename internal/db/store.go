package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkravets/job-tracker/internal/interfaces"
)

// Store handles database operations for jobs. The same SQL text works on
// both supported drivers: $N placeholders are understood by lib/pq and by
// modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new database store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateJob inserts a new job into the database
func (s *Store) CreateJob(job *interfaces.Job) error {
	query := `
		INSERT INTO jobs (id, name, description, status, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(query,
		job.ID, job.Name, nullable(job.Description), job.Status, nullable(job.Error),
		job.CreatedAt, job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by ID
func (s *Store) GetJob(id string) (*interfaces.Job, error) {
	query := `
		SELECT id, name, description, status, error, created_at, updated_at
		FROM jobs WHERE id = $1
	`

	job, err := scanJob(s.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// UpdateJob persists the mutable fields of an existing job. The single-row
// UPDATE is atomic, so concurrent writers resolve last-writer-wins.
func (s *Store) UpdateJob(job *interfaces.Job) error {
	query := `
		UPDATE jobs
		SET status = $2, error = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := s.db.Exec(query, job.ID, job.Status, nullable(job.Error), job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", interfaces.ErrNotFound, job.ID)
	}

	return nil
}

// JobsInWindow retrieves all jobs whose updated_at falls in [start, end],
// inclusive on both ends.
func (s *Store) JobsInWindow(start, end time.Time) ([]*interfaces.Job, error) {
	query := `
		SELECT id, name, description, status, error, created_at, updated_at
		FROM jobs
		WHERE updated_at >= $1 AND updated_at <= $2
		ORDER BY created_at ASC
	`

	rows, err := s.db.Query(query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	return collectJobs(rows)
}

// JobsByStatusInWindow retrieves all jobs with the given status whose
// updated_at falls in [start, end], inclusive on both ends.
func (s *Store) JobsByStatusInWindow(status interfaces.JobStatus, start, end time.Time) ([]*interfaces.Job, error) {
	query := `
		SELECT id, name, description, status, error, created_at, updated_at
		FROM jobs
		WHERE status = $1 AND updated_at >= $2 AND updated_at <= $3
		ORDER BY created_at ASC
	`

	rows, err := s.db.Query(query, status, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs by status: %w", err)
	}

	return collectJobs(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*interfaces.Job, error) {
	job := &interfaces.Job{}
	var description, errText sql.NullString

	if err := row.Scan(
		&job.ID, &job.Name, &description, &job.Status, &errText,
		&job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}

	job.Description = description.String
	job.Error = errText.String
	return job, nil
}

func collectJobs(rows *sql.Rows) ([]*interfaces.Job, error) {
	defer rows.Close()

	var jobs []*interfaces.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return jobs, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
