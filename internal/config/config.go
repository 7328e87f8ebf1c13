package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the runtime settings shared by the CLI commands and the
// server. Everything is env-driven with local-development defaults.
type Config struct {
	DBDriver   string // "sqlite" or "postgres"
	SQLitePath string

	NATSURL        string // empty means log-only dispatch
	SummarySubject string

	ScheduleTime string // "HH:MM" time of day for the daily report
	PollInterval time.Duration

	HTTPPort string
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DBDriver:       getenv("JOBTRACKER_DB_DRIVER", "sqlite"),
		SQLitePath:     getenv("JOBTRACKER_SQLITE_PATH", "./data/jobs.db"),
		NATSURL:        os.Getenv("NATS_URL"),
		SummarySubject: getenv("SUMMARY_SUBJECT", "jobs.summary.daily"),
		ScheduleTime:   getenv("SCHEDULE_TIME", "09:00"),
		HTTPPort:       getenv("HTTP_PORT", "8080"),
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported JOBTRACKER_DB_DRIVER %q", cfg.DBDriver)
	}

	interval, err := time.ParseDuration(getenv("SCHEDULE_POLL_INTERVAL", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SCHEDULE_POLL_INTERVAL: %w", err)
	}
	cfg.PollInterval = interval

	if _, err := time.Parse("15:04", cfg.ScheduleTime); err != nil {
		return Config{}, fmt.Errorf("invalid SCHEDULE_TIME %q, expected HH:MM", cfg.ScheduleTime)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
