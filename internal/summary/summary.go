package summary

import (
	"fmt"
	"time"

	"github.com/mkravets/job-tracker/internal/interfaces"
	"github.com/mkravets/job-tracker/internal/jobs"
)

// DayFormat is the wire format for summary dates.
const DayFormat = "2006-01-02"

// DailySummary is a derived, never-persisted digest of one calendar day of
// job activity. It is a pure function of the store's contents at query time.
type DailySummary struct {
	Date            string                       `json:"date"`
	TotalJobs       int                          `json:"total_jobs"`
	StatusBreakdown map[interfaces.JobStatus]int `json:"status_breakdown"`
	Jobs            []*interfaces.Job            `json:"jobs"`
}

// Engine computes daily summaries from the job store.
type Engine struct {
	store interfaces.JobStore
}

// NewEngine creates a summary engine over the given store.
func NewEngine(store interfaces.JobStore) *Engine {
	return &Engine{store: store}
}

// Compute builds the summary for the calendar day of the supplied time.
// Statuses with no matching jobs are absent from the breakdown.
func (e *Engine) Compute(day time.Time) (*DailySummary, error) {
	start, end := jobs.DayWindow(day)

	windowed, err := e.store.JobsInWindow(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs for %s: %w", day.Format(DayFormat), err)
	}

	breakdown := make(map[interfaces.JobStatus]int)
	for _, job := range windowed {
		breakdown[job.Status]++
	}

	return &DailySummary{
		Date:            day.Format(DayFormat),
		TotalJobs:       len(windowed),
		StatusBreakdown: breakdown,
		Jobs:            windowed,
	}, nil
}

// ParseDay parses an ISO YYYY-MM-DD date in the local time zone. The check
// happens before any store access, so a bad date never touches persistence.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", interfaces.ErrInvalidInput, s)
	}
	return t, nil
}
