package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/mkravets/job-tracker/internal/jobs"
	"github.com/mkravets/job-tracker/internal/logger"
	"github.com/mkravets/job-tracker/internal/notify"
	"github.com/mkravets/job-tracker/internal/summary"
)

type Server struct {
	httpServer *http.Server
}

func NewServer(registry *jobs.Registry, engine *summary.Engine, dispatcher notify.Dispatcher, database *sql.DB, port string) *Server {
	mux := http.NewServeMux()
	AddRoutes(mux, registry, engine, dispatcher, database)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	logger.Logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Stop drains in-flight requests and closes the listener. The context bounds
// how long the drain may take.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
