package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mkravets/job-tracker/internal/interfaces"
	"github.com/mkravets/job-tracker/internal/logger"
	"github.com/mkravets/job-tracker/internal/summary"
)

func init() {
	logger.Init("scheduler-test")
}

type fakeStore struct {
	jobs []*interfaces.Job
	err  error
}

func (f *fakeStore) CreateJob(*interfaces.Job) error        { return nil }
func (f *fakeStore) GetJob(string) (*interfaces.Job, error) { return nil, interfaces.ErrNotFound }
func (f *fakeStore) UpdateJob(*interfaces.Job) error        { return nil }
func (f *fakeStore) JobsInWindow(_, _ time.Time) ([]*interfaces.Job, error) {
	return f.jobs, f.err
}
func (f *fakeStore) JobsByStatusInWindow(_ interfaces.JobStatus, _, _ time.Time) ([]*interfaces.Job, error) {
	return f.jobs, f.err
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *recordingDispatcher) SendDailySummary(*summary.DailySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestScheduler(t *testing.T, store interfaces.JobStore, dispatcher *recordingDispatcher) *Scheduler {
	t.Helper()

	sched, err := New(summary.NewEngine(store), dispatcher, "09:00")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return sched
}

func TestNewRejectsBadScheduleTime(t *testing.T) {
	for _, bad := range []string{"9am", "25:00", "09:60", ""} {
		if _, err := New(summary.NewEngine(&fakeStore{}), &recordingDispatcher{}, bad); err == nil {
			t.Fatalf("New(%q): expected error", bad)
		}
	}
}

func TestTickFiresOnceAcrossTrigger(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	sched := newTestScheduler(t, &fakeStore{}, dispatcher)

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	sched.tick(day.Add(8*time.Hour + 59*time.Minute))
	if dispatcher.count() != 0 {
		t.Fatalf("dispatched before trigger time: %d calls", dispatcher.count())
	}

	sched.tick(day.Add(9*time.Hour + 1*time.Minute))
	if dispatcher.count() != 1 {
		t.Fatalf("expected exactly 1 dispatch after crossing trigger, got %d", dispatcher.count())
	}

	// later polls the same day must not fire again
	sched.tick(day.Add(9*time.Hour + 2*time.Minute))
	sched.tick(day.Add(18 * time.Hour))
	if dispatcher.count() != 1 {
		t.Fatalf("dispatched more than once per day: %d calls", dispatcher.count())
	}

	// the next day's trigger fires again
	sched.tick(day.AddDate(0, 0, 1).Add(9*time.Hour + 1*time.Minute))
	if dispatcher.count() != 2 {
		t.Fatalf("expected next-day dispatch, got %d calls", dispatcher.count())
	}
}

func TestDispatchFailureConsumesDayAndLoopContinues(t *testing.T) {
	dispatcher := &recordingDispatcher{err: errors.New("broker unreachable")}
	sched := newTestScheduler(t, &fakeStore{}, dispatcher)

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	sched.tick(day.Add(9*time.Hour + 1*time.Minute))
	if dispatcher.count() != 1 {
		t.Fatalf("expected 1 attempt, got %d", dispatcher.count())
	}

	// no same-day retry after a failure
	sched.tick(day.Add(9*time.Hour + 30*time.Minute))
	if dispatcher.count() != 1 {
		t.Fatalf("retried within the same day: %d attempts", dispatcher.count())
	}

	sched.tick(day.AddDate(0, 0, 1).Add(9*time.Hour + 1*time.Minute))
	if dispatcher.count() != 2 {
		t.Fatalf("expected next-day attempt after failure, got %d", dispatcher.count())
	}
}

func TestStoreErrorTreatedAsFailedCycle(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	store := &fakeStore{err: errors.New("connection reset")}
	sched := newTestScheduler(t, store, dispatcher)

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	sched.tick(day.Add(9*time.Hour + 1*time.Minute))
	if dispatcher.count() != 0 {
		t.Fatalf("dispatcher must not be called when the summary fails: %d calls", dispatcher.count())
	}

	// the failed cycle consumed the day's slot
	sched.tick(day.Add(10 * time.Hour))
	if dispatcher.count() != 0 {
		t.Fatalf("unexpected same-day retry: %d calls", dispatcher.count())
	}

	// the store recovers; the next day fires normally
	store.err = nil
	sched.tick(day.AddDate(0, 0, 1).Add(9*time.Hour + 1*time.Minute))
	if dispatcher.count() != 1 {
		t.Fatalf("expected next-day dispatch after store recovery, got %d", dispatcher.count())
	}
}

func TestStartAfterTriggerDoesNotCatchUp(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	sched := newTestScheduler(t, &fakeStore{}, dispatcher)

	started := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	sched.now = func() time.Time { return started }
	sched.SetPollInterval(5 * time.Millisecond)

	sched.Start()
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	if dispatcher.count() != 0 {
		t.Fatalf("caught up on a missed trigger: %d calls", dispatcher.count())
	}
}

func TestRunLoopFiresThroughTrigger(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	sched := newTestScheduler(t, &fakeStore{}, dispatcher)

	var mu sync.Mutex
	now := time.Date(2025, 6, 10, 8, 59, 0, 0, time.UTC)
	sched.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	sched.SetPollInterval(5 * time.Millisecond)

	sched.Start()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	now = time.Date(2025, 6, 10, 9, 1, 0, 0, time.UTC)
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	if dispatcher.count() != 1 {
		t.Fatalf("expected exactly 1 dispatch through the trigger boundary, got %d", dispatcher.count())
	}
}
