package notify

import (
	"github.com/mkravets/job-tracker/internal/logger"
	"github.com/mkravets/job-tracker/internal/summary"
)

// Dispatcher delivers a computed daily summary through some external
// channel. Implementations must return delivery problems as errors rather
// than panicking, so a failed dispatch never takes down the scheduler loop.
type Dispatcher interface {
	SendDailySummary(s *summary.DailySummary) error
}

// LogDispatcher writes the digest to the structured log. It is the fallback
// channel when no broker is configured and always succeeds.
type LogDispatcher struct{}

func (LogDispatcher) SendDailySummary(s *summary.DailySummary) error {
	event := logger.Logger.Info().
		Str("date", s.Date).
		Int("total_jobs", s.TotalJobs)
	for status, count := range s.StatusBreakdown {
		event = event.Int("status_"+string(status), count)
	}
	event.Msg("Daily job summary")
	return nil
}
