package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/job-tracker/internal/api"
	"github.com/mkravets/job-tracker/internal/config"
	"github.com/mkravets/job-tracker/internal/db"
	"github.com/mkravets/job-tracker/internal/interfaces"
	"github.com/mkravets/job-tracker/internal/jobs"
	"github.com/mkravets/job-tracker/internal/logger"
	"github.com/mkravets/job-tracker/internal/notify"
	"github.com/mkravets/job-tracker/internal/scheduler"
	"github.com/mkravets/job-tracker/internal/summary"
)

func main() {
	logger.Init("job-tracker")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles the wired components a command works against, plus the handles
// it must release when the single requested action completes.
type app struct {
	cfg        config.Config
	database   *sql.DB
	registry   *jobs.Registry
	engine     *summary.Engine
	dispatcher notify.Dispatcher
	closers    []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openApp(withDispatcher bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var database *sql.DB
	switch cfg.DBDriver {
	case "postgres":
		database, err = db.Connect(db.DefaultConfig())
	default:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		database, err = db.OpenSQLite(cfg.SQLitePath)
	}
	if err != nil {
		return nil, err
	}

	store := db.NewStore(database)
	a := &app{
		cfg:      cfg,
		database: database,
		registry: jobs.NewRegistry(store),
		engine:   summary.NewEngine(store),
		closers:  []func(){func() { database.Close() }},
	}

	if withDispatcher {
		if cfg.NATSURL != "" {
			d, err := notify.NewNATSDispatcher(cfg.NATSURL, cfg.SummarySubject)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.closers = append(a.closers, d.Close)
			a.dispatcher = d
		} else {
			a.dispatcher = notify.LogDispatcher{}
		}
	}

	return a, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jobtracker",
		Short:         "Track jobs and dispatch daily status reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newAddCmd(),
		newUpdateCmd(),
		newSummaryCmd(),
		newSendReportCmd(),
		newSchedulerCmd(),
		newServeCmd(),
	)
	return root
}

func newAddCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a new job in status pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := a.registry.AddJob(args[0], description)
			if err != nil {
				return err
			}

			fmt.Printf("Created job %s (%s)\n", job.ID, job.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "optional free-text description")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var errorText string

	cmd := &cobra.Command{
		Use:   "update <id> <status>",
		Short: "Apply a status transition to a job",
		Long: "Apply a status transition to a job. Status must be one of pending, " +
			"running, completed, failed, cancelled. Passing --error with an empty " +
			"value clears stored error text; omitting it leaves the text unchanged.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := interfaces.ParseStatus(args[1])
			if err != nil {
				return err
			}

			var errMsg *string
			if cmd.Flags().Changed("error") {
				errMsg = &errorText
			}

			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := a.registry.UpdateStatus(args[0], status, errMsg)
			if err != nil {
				return err
			}

			fmt.Printf("Job %s is now %s\n", job.ID, job.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&errorText, "error", "e", "", "error text recorded with the transition")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the daily job summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := resolveDay(date)
			if err != nil {
				return err
			}

			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			digest, err := a.engine.Compute(day)
			if err != nil {
				return err
			}

			printSummary(digest)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to summarize (YYYY-MM-DD, default today)")
	return cmd
}

func newSendReportCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "send-report",
		Short: "Compute the daily summary and dispatch it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := resolveDay(date)
			if err != nil {
				return err
			}

			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			digest, err := a.engine.Compute(day)
			if err != nil {
				return err
			}

			if err := a.dispatcher.SendDailySummary(digest); err != nil {
				fmt.Printf("Dispatch failed for %s: %v\n", digest.Date, err)
				return nil
			}

			fmt.Printf("Dispatched summary for %s (%d jobs)\n", digest.Date, digest.TotalJobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to report on (YYYY-MM-DD, default today)")
	return cmd
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the recurring daily report scheduler (blocks)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := scheduler.New(a.engine, a.dispatcher, a.cfg.ScheduleTime)
			if err != nil {
				return err
			}
			sched.SetPollInterval(a.cfg.PollInterval)
			sched.Start()

			waitForSignal()
			sched.Stop()
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the scheduler in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := scheduler.New(a.engine, a.dispatcher, a.cfg.ScheduleTime)
			if err != nil {
				return err
			}
			sched.SetPollInterval(a.cfg.PollInterval)
			sched.Start()

			server := api.NewServer(a.registry, a.engine, a.dispatcher, a.database, a.cfg.HTTPPort)
			serverErr := make(chan error, 1)
			go func() {
				serverErr <- server.Start()
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-sigChan:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(ctx); err != nil {
					logger.Logger.Warn().Err(err).Msg("API server shutdown did not drain cleanly")
				}
				sched.Stop()
				return nil
			case err := <-serverErr:
				sched.Stop()
				return fmt.Errorf("API server stopped: %w", err)
			}
		},
	}
}

func resolveDay(date string) (time.Time, error) {
	if date == "" {
		return time.Now(), nil
	}
	return summary.ParseDay(date)
}

func printSummary(digest *summary.DailySummary) {
	fmt.Printf("Daily summary for %s\n", digest.Date)
	fmt.Printf("Total jobs: %d\n", digest.TotalJobs)

	statuses := make([]string, 0, len(digest.StatusBreakdown))
	for status := range digest.StatusBreakdown {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Printf("  %s: %d\n", status, digest.StatusBreakdown[interfaces.JobStatus(status)])
	}

	if len(digest.Jobs) == 0 {
		return
	}
	fmt.Println()
	for _, job := range digest.Jobs {
		line := fmt.Sprintf("%s  %s  %s  %s", job.ID, job.Name, job.Status,
			job.UpdatedAt.Format(time.RFC3339))
		if job.Error != "" {
			line += "  error: " + job.Error
		}
		fmt.Println(line)
	}
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}
