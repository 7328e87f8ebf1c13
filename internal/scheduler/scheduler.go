package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkravets/job-tracker/internal/logger"
	"github.com/mkravets/job-tracker/internal/metrics"
	"github.com/mkravets/job-tracker/internal/notify"
	"github.com/mkravets/job-tracker/internal/summary"
)

// DefaultPollInterval is the wake-up granularity of the trigger loop. The
// scheduling guarantee communicated to users is minute precision, not finer.
const DefaultPollInterval = time.Minute

// Scheduler fires the daily summary dispatch at most once per calendar day,
// at a configured time of day. It polls at a coarse interval instead of
// arming an exact deadline timer; both satisfy the at-most-once-per-day
// contract. Missed windows are not caught up after a restart.
type Scheduler struct {
	engine     *summary.Engine
	dispatcher notify.Dispatcher

	hour   int
	minute int

	pollInterval time.Duration
	now          func() time.Time

	mu      sync.Mutex
	lastDay string // YYYY-MM-DD of the last day a dispatch was attempted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler firing daily at the given "HH:MM" time of day.
func New(engine *summary.Engine, dispatcher notify.Dispatcher, at string) (*Scheduler, error) {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule time %q, expected HH:MM: %w", at, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		engine:       engine,
		dispatcher:   dispatcher,
		hour:         parsed.Hour(),
		minute:       parsed.Minute(),
		pollInterval: DefaultPollInterval,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// SetPollInterval overrides the wake-up granularity. Call before Start.
func (s *Scheduler) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// Start launches the background trigger loop. If today's trigger time has
// already passed, today is marked as handled: a process that was down at the
// trigger instant does not catch up.
func (s *Scheduler) Start() {
	now := s.now()
	if !now.Before(s.triggerFor(now)) {
		s.lastDay = now.Format(summary.DayFormat)
	}

	logger.Logger.Info().
		Str("schedule_time", fmt.Sprintf("%02d:%02d", s.hour, s.minute)).
		Dur("poll_interval", s.pollInterval).
		Msg("Starting daily report scheduler")

	s.wg.Add(1)
	go s.run()
}

// Stop cancels the loop and waits for it to exit. A dispatch already in
// flight completes first.
func (s *Scheduler) Stop() {
	logger.Logger.Info().Msg("Stopping daily report scheduler")
	s.cancel()
	s.wg.Wait()
	logger.Logger.Info().Msg("Daily report scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// tick fires the dispatch when now has crossed today's trigger time and no
// attempt has been made today. Exactly one attempt per day: success and
// failure both consume the day's slot.
func (s *Scheduler) tick(now time.Time) {
	s.mu.Lock()
	today := now.Format(summary.DayFormat)
	if now.Before(s.triggerFor(now)) || s.lastDay == today {
		s.mu.Unlock()
		return
	}
	s.lastDay = today
	s.mu.Unlock()

	s.dispatch(now)
}

func (s *Scheduler) dispatch(day time.Time) {
	digest, err := s.engine.Compute(day)
	if err != nil {
		metrics.DispatchFailuresTotal.Inc()
		logger.Logger.Error().Err(err).Msg("Failed to compute daily summary")
		return
	}

	if err := s.dispatcher.SendDailySummary(digest); err != nil {
		metrics.DispatchFailuresTotal.Inc()
		logger.Logger.Error().Err(err).
			Str("date", digest.Date).
			Msg("Failed to dispatch daily summary")
		return
	}

	metrics.SummariesDispatchedTotal.Inc()
	metrics.LastDispatchTimestamp.SetToCurrentTime()
	logger.Logger.Info().
		Str("date", digest.Date).
		Int("total_jobs", digest.TotalJobs).
		Msg("Daily summary dispatched")
}

func (s *Scheduler) triggerFor(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.hour, s.minute, 0, 0, day.Location())
}
