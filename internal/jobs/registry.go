package jobs

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mkravets/job-tracker/internal/interfaces"
	"github.com/mkravets/job-tracker/internal/logger"
	"github.com/mkravets/job-tracker/internal/metrics"
)

// Registry is the sole mutation path for jobs. It owns the side effects of a
// status transition: timestamp maintenance and error text handling. All
// persistence goes through the injected store handle.
type Registry struct {
	store interfaces.JobStore
}

// NewRegistry creates a registry over the given store.
func NewRegistry(store interfaces.JobStore) *Registry {
	return &Registry{store: store}
}

// AddJob creates a job in status pending and persists it.
func (r *Registry) AddJob(name, description string) (*interfaces.Job, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: job name cannot be empty", interfaces.ErrInvalidInput)
	}

	now := time.Now()
	job := &interfaces.Job{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Status:      interfaces.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	metrics.JobsCreatedTotal.Inc()
	log := logger.WithJobID(job.ID)
	log.Info().Str("name", job.Name).Msg("Job created")
	return job, nil
}

// UpdateStatus applies a status transition to the job with the given id and
// refreshes updated_at. Any status may be set to any other status; the
// registry does not enforce a transition graph.
//
// errorMessage semantics: nil leaves the stored error text untouched; a
// non-nil value overwrites it, so passing a pointer to the empty string
// clears it.
func (r *Registry) UpdateStatus(id string, status interfaces.JobStatus, errorMessage *string) (*interfaces.Job, error) {
	job, err := r.store.GetJob(id)
	if err != nil {
		return nil, err
	}

	job.Status = status
	job.UpdatedAt = time.Now()
	if errorMessage != nil {
		job.Error = *errorMessage
	}

	if err := r.store.UpdateJob(job); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	metrics.StatusTransitionsTotal.WithLabelValues(string(status)).Inc()
	log := logger.WithJobID(job.ID)
	log.Info().Str("status", string(status)).Msg("Job status updated")
	return job, nil
}

// GetJob retrieves a job by id.
func (r *Registry) GetJob(id string) (*interfaces.Job, error) {
	return r.store.GetJob(id)
}

// JobsByStatus returns the jobs holding the given status whose last update
// falls on the calendar day of the supplied time.
func (r *Registry) JobsByStatus(status interfaces.JobStatus, day time.Time) ([]*interfaces.Job, error) {
	start, end := DayWindow(day)
	return r.store.JobsByStatusInWindow(status, start, end)
}

// JobsOnDay returns every job whose last update falls on the calendar day
// of the supplied time, in the store's natural retrieval order.
func (r *Registry) JobsOnDay(day time.Time) ([]*interfaces.Job, error) {
	start, end := DayWindow(day)
	return r.store.JobsInWindow(start, end)
}

// DayWindow returns the closed [start, end] range covering the calendar day
// of t in t's location. The end is the last representable microsecond of the
// day, 23:59:59.999999.
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := start.Add(24*time.Hour - time.Microsecond)
	return start, end
}
