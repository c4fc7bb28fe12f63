package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/couchcryptid/space-weather-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusReporter summarizes the feed monitor for operators.
type StatusReporter interface {
	Status() pipeline.Status
}

// AlertHistory lists the most recently stored alerts, newest first.
type AlertHistory interface {
	Recent(ctx context.Context, limit int) ([]domain.Alert, error)
}

// recentAlertLimit caps the alerts embedded in the status response.
const recentAlertLimit = 10

type statusResponse struct {
	pipeline.Status
	RecentAlerts []domain.Alert `json:"recentAlerts,omitempty"`
}

// Server exposes health, readiness, monitor status and metrics endpoints.
type Server struct {
	httpServer *http.Server
	history    AlertHistory
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz and /metrics routes,
// plus /status when status is non-nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, status StatusReporter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if status != nil {
		mux.HandleFunc("GET /status", s.handleStatus(status))
	}

	return s
}

// WithAlertHistory adds the most recent stored alerts to /status.
func (s *Server) WithAlertHistory(h AlertHistory) *Server {
	s.history = h
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleStatus(reporter StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{Status: reporter.Status()}
		if s.history != nil {
			recent, err := s.history.Recent(r.Context(), recentAlertLimit)
			if err != nil {
				s.logger.Warn("load recent alerts failed", "error", err)
			}
			resp.RecentAlerts = recent
		}

		code := http.StatusOK
		if !resp.Ready {
			code = http.StatusServiceUnavailable
		}
		if err := writeJSON(w, code, resp); err != nil {
			s.logger.Warn("write status response failed", "error", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// ReadinessGroup is ready only when every member is.
type ReadinessGroup []sharedobs.ReadinessChecker

// CheckReadiness returns the joined errors of all members that are not ready.
func (g ReadinessGroup) CheckReadiness(ctx context.Context) error {
	var errs []error
	for _, c := range g {
		if err := c.CheckReadiness(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
