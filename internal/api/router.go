package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkravets/job-tracker/internal/interfaces"
	"github.com/mkravets/job-tracker/internal/jobs"
	"github.com/mkravets/job-tracker/internal/logger"
	"github.com/mkravets/job-tracker/internal/notify"
	"github.com/mkravets/job-tracker/internal/summary"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

func AddRoutes(
	mux *http.ServeMux,
	registry *jobs.Registry,
	engine *summary.Engine,
	dispatcher notify.Dispatcher,
	database *sql.DB,
) {
	mux.HandleFunc("/jobs", correlationMiddleware(handleJobs(registry)))
	mux.HandleFunc("/jobs/", correlationMiddleware(handleJobByID(registry)))
	mux.HandleFunc("/summary", correlationMiddleware(handleSummary(engine)))
	mux.HandleFunc("/report", correlationMiddleware(handleReport(engine, dispatcher)))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", HandleHealth)
	mux.HandleFunc("/health/ready", HandleReadiness(database))
	mux.HandleFunc("/health/live", HandleLiveness)
}

func correlationMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		next(w, r.WithContext(ctx))
	}
}

func getCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

func handleJobs(registry *jobs.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := getCorrelationID(r.Context())
		log := logger.WithCorrelationID(correlationID)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Received request")

		switch r.Method {
		case http.MethodGet:
			handleListJobs(w, r, registry, correlationID)
		case http.MethodPost:
			handleCreateJob(w, r, registry, correlationID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func handleCreateJob(w http.ResponseWriter, r *http.Request, registry *jobs.Registry, correlationID string) {
	type JobRequest struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	log := logger.WithCorrelationID(correlationID)

	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Invalid JSON request")
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	job, err := registry.AddJob(req.Name, req.Description)
	if err != nil {
		if errors.Is(err, interfaces.ErrInvalidInput) {
			log.Warn().Err(err).Msg("Rejected job creation")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Msg("Failed to create job")
		http.Error(w, "Failed to create job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, job, correlationID)
	log.Info().Str("job_id", job.ID).Msg("Job created via API")
}

func handleListJobs(w http.ResponseWriter, r *http.Request, registry *jobs.Registry, correlationID string) {
	log := logger.WithCorrelationID(correlationID)

	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := summary.ParseDay(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		day = parsed
	}

	var (
		listed []*interfaces.Job
		err    error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, parseErr := interfaces.ParseStatus(raw)
		if parseErr != nil {
			http.Error(w, parseErr.Error(), http.StatusBadRequest)
			return
		}
		listed, err = registry.JobsByStatus(status, day)
	} else {
		listed, err = registry.JobsOnDay(day)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to list jobs")
		http.Error(w, "Failed to retrieve jobs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  listed,
		"count": len(listed),
	}, correlationID)
}

func handleJobByID(registry *jobs.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := getCorrelationID(r.Context())
		path := strings.TrimPrefix(r.URL.Path, "/jobs/")
		if path == "" {
			http.Error(w, "Job ID is required", http.StatusBadRequest)
			return
		}

		if id, ok := strings.CutSuffix(path, "/status"); ok {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			handleUpdateStatus(w, r, id, registry, correlationID)
			return
		}

		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleGetJob(w, path, registry, correlationID)
	}
}

func handleGetJob(w http.ResponseWriter, jobID string, registry *jobs.Registry, correlationID string) {
	log := logger.WithCorrelationID(correlationID)

	job, err := registry.GetJob(jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			log.Warn().Str("job_id", jobID).Msg("Job not found")
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Msg("Failed to get job")
		http.Error(w, "Failed to retrieve job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, job, correlationID)
}

func handleUpdateStatus(w http.ResponseWriter, r *http.Request, jobID string, registry *jobs.Registry, correlationID string) {
	type StatusRequest struct {
		Status string `json:"status"`
		// A present-but-empty error clears stored error text; an absent
		// field leaves it untouched.
		Error *string `json:"error"`
	}

	log := logger.WithCorrelationID(correlationID)

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Invalid JSON request")
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	status, err := interfaces.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := registry.UpdateStatus(jobID, status, req.Error)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			log.Warn().Str("job_id", jobID).Msg("Job not found")
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Msg("Failed to update job status")
		http.Error(w, "Failed to update job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, job, correlationID)
	log.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("Job status updated via API")
}

func handleSummary(engine *summary.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		correlationID := getCorrelationID(r.Context())
		log := logger.WithCorrelationID(correlationID)

		day, ok := dayFromQuery(w, r)
		if !ok {
			return
		}

		digest, err := engine.Compute(day)
		if err != nil {
			log.Error().Err(err).Msg("Failed to compute summary")
			http.Error(w, "Failed to compute summary", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, digest, correlationID)
	}
}

func handleReport(engine *summary.Engine, dispatcher notify.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		correlationID := getCorrelationID(r.Context())
		log := logger.WithCorrelationID(correlationID)

		day, ok := dayFromQuery(w, r)
		if !ok {
			return
		}

		digest, err := engine.Compute(day)
		if err != nil {
			log.Error().Err(err).Msg("Failed to compute summary for report")
			http.Error(w, "Failed to compute summary", http.StatusInternalServerError)
			return
		}

		if err := dispatcher.SendDailySummary(digest); err != nil {
			log.Error().Err(err).Str("date", digest.Date).Msg("Failed to dispatch summary")
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"dispatched": false,
				"date":       digest.Date,
				"error":      err.Error(),
			}, correlationID)
			return
		}

		log.Info().Str("date", digest.Date).Msg("Summary dispatched via API")
		writeJSON(w, http.StatusOK, map[string]any{
			"dispatched": true,
			"date":       digest.Date,
		}, correlationID)
	}
}

func dayFromQuery(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Now(), true
	}
	day, err := summary.ParseDay(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return time.Time{}, false
	}
	return day, true
}

func writeJSON(w http.ResponseWriter, status int, v any, correlationID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithCorrelationID(correlationID).Error().Err(err).Msg("Failed to encode response")
	}
}
