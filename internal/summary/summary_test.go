package summary

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/job-tracker/internal/db"
	"github.com/mkravets/job-tracker/internal/interfaces"
	"github.com/mkravets/job-tracker/internal/jobs"
)

func newTestSetup(t *testing.T) (*Engine, *db.Store, *jobs.Registry) {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := db.NewStore(database)
	return NewEngine(store), store, jobs.NewRegistry(store)
}

func TestComputeScenario(t *testing.T) {
	engine, _, registry := newTestSetup(t)

	backup, err := registry.AddJob("Backup", "")
	if err != nil {
		t.Fatalf("AddJob returned error: %v", err)
	}
	sync, err := registry.AddJob("Sync", "")
	if err != nil {
		t.Fatalf("AddJob returned error: %v", err)
	}
	if _, err := registry.AddJob("Cleanup", ""); err != nil {
		t.Fatalf("AddJob returned error: %v", err)
	}

	if _, err := registry.UpdateStatus(backup.ID, interfaces.StatusCompleted, nil); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	errText := "timeout"
	if _, err := registry.UpdateStatus(sync.ID, interfaces.StatusFailed, &errText); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	digest, err := engine.Compute(time.Now())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if digest.TotalJobs != 3 {
		t.Fatalf("expected 3 total jobs, got %d", digest.TotalJobs)
	}
	want := map[interfaces.JobStatus]int{
		interfaces.StatusCompleted: 1,
		interfaces.StatusFailed:    1,
		interfaces.StatusPending:   1,
	}
	if len(digest.StatusBreakdown) != len(want) {
		t.Fatalf("unexpected breakdown: %v", digest.StatusBreakdown)
	}
	for status, count := range want {
		if digest.StatusBreakdown[status] != count {
			t.Fatalf("expected %d %s jobs, got %d", count, status, digest.StatusBreakdown[status])
		}
	}

	var syncEntry *interfaces.Job
	for _, job := range digest.Jobs {
		if job.Name == "Sync" {
			syncEntry = job
		}
	}
	if syncEntry == nil {
		t.Fatal("Sync job missing from summary")
	}
	if syncEntry.Error != "timeout" {
		t.Fatalf("expected Sync error %q, got %q", "timeout", syncEntry.Error)
	}
}

func TestComputeBreakdownSumsToTotal(t *testing.T) {
	engine, _, registry := newTestSetup(t)

	statuses := []interfaces.JobStatus{
		interfaces.StatusPending,
		interfaces.StatusRunning,
		interfaces.StatusRunning,
		interfaces.StatusCompleted,
		interfaces.StatusCancelled,
	}
	for i, status := range statuses {
		job, err := registry.AddJob("job", "")
		if err != nil {
			t.Fatalf("AddJob %d returned error: %v", i, err)
		}
		if status != interfaces.StatusPending {
			if _, err := registry.UpdateStatus(job.ID, status, nil); err != nil {
				t.Fatalf("UpdateStatus %d returned error: %v", i, err)
			}
		}
	}

	digest, err := engine.Compute(time.Now())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	sum := 0
	for _, count := range digest.StatusBreakdown {
		sum += count
	}
	if sum != digest.TotalJobs {
		t.Fatalf("breakdown sums to %d, total is %d", sum, digest.TotalJobs)
	}
	if _, ok := digest.StatusBreakdown[interfaces.StatusFailed]; ok {
		t.Fatal("zero-count status must be absent from breakdown")
	}
}

func TestComputeDayBoundary(t *testing.T) {
	engine, store, _ := newTestSetup(t)

	day := time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)
	start, end := jobs.DayWindow(day)

	lastInstant := &interfaces.Job{
		ID:        uuid.New().String(),
		Name:      "last-instant",
		Status:    interfaces.StatusCompleted,
		CreatedAt: start,
		UpdatedAt: end, // 23:59:59.999999
	}
	if err := store.CreateJob(lastInstant); err != nil {
		t.Fatalf("CreateJob returned error: %v", err)
	}

	digest, err := engine.Compute(day)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if digest.TotalJobs != 1 {
		t.Fatalf("expected last-instant job in day's summary, got %d jobs", digest.TotalJobs)
	}

	nextDay, err := engine.Compute(day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if nextDay.TotalJobs != 0 {
		t.Fatalf("expected empty next-day summary, got %d jobs", nextDay.TotalJobs)
	}
}

func TestComputeIdempotent(t *testing.T) {
	engine, _, registry := newTestSetup(t)

	if _, err := registry.AddJob("Backup", ""); err != nil {
		t.Fatalf("AddJob returned error: %v", err)
	}

	first, err := engine.Compute(time.Now())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	second, err := engine.Compute(time.Now())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("summaries differ:\n%s\n%s", a, b)
	}
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2025-06-10")
	if err != nil {
		t.Fatalf("ParseDay returned error: %v", err)
	}
	if day.Year() != 2025 || day.Month() != time.June || day.Day() != 10 {
		t.Fatalf("unexpected parsed day: %v", day)
	}

	for _, bad := range []string{"10-06-2025", "2025/06/10", "not-a-date", "2025-13-01"} {
		if _, err := ParseDay(bad); !errors.Is(err, interfaces.ErrInvalidInput) {
			t.Fatalf("ParseDay(%q): expected ErrInvalidInput, got %v", bad, err)
		}
	}
}
