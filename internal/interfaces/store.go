package interfaces

import (
	"errors"
	"fmt"
	"time"
)

// JobStatus represents the current state of a tracked job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Error taxonomy shared by the registry, the stores, and the callers above
// them. Callers detect these with errors.Is; stores wrap them with context.
var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ParseStatus converts a user-supplied status name into a JobStatus.
func ParseStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return JobStatus(s), nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}

// Job represents a tracked unit of externally-performed work. The tracker
// only records status transitions reported to it; it never executes anything.
type Job struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// String returns a string representation of the job
func (j *Job) String() string {
	return fmt.Sprintf("Job{ID: %s, Name: %s, Status: %s}", j.ID, j.Name, j.Status)
}

// JobStore interface defines the persistence operations needed by the registry.
// Implementations must apply each write atomically; concurrent updates to the
// same record resolve last-writer-wins with no partial row ever visible.
type JobStore interface {
	CreateJob(job *Job) error
	GetJob(id string) (*Job, error)
	UpdateJob(job *Job) error
	JobsInWindow(start, end time.Time) ([]*Job, error)
	JobsByStatusInWindow(status JobStatus, start, end time.Time) ([]*Job, error)
}
