package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/dispatcher/internal/backend"
	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Executor runs a task through the dispatcher.
type Executor interface {
	Execute(ctx context.Context, task domain.Task, override []string) (*domain.ExecutionResult, error)
	AllStats() map[string]domain.HealthStats
}

// Server provides HTTP endpoints for health, stats, backend administration
// and task submission.
type Server struct {
	monitor    *Monitor
	backends   *backend.Registry
	dispatcher Executor
	logger     *slog.Logger
	server     *http.Server
}

// NewServer creates a new health server.
func NewServer(
	monitor *Monitor,
	backends *backend.Registry,
	dispatcher Executor,
	port int,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		monitor:    monitor,
		backends:   backends,
		dispatcher: dispatcher,
		logger:     logger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /backends", s.handleBackends)
	mux.HandleFunc("POST /backends/{id}/enable", s.handleToggle(true))
	mux.HandleFunc("POST /backends/{id}/disable", s.handleToggle(false))
	mux.HandleFunc("POST /tasks", s.handleExecute)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth()

	code := http.StatusOK
	if report.SystemStatus == StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": string(report.SystemStatus)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.CheckHealth())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.AllStats())
}

func (s *Server) handleBackends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backends.List())
}

func (s *Server) handleToggle(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.backends.SetEnabled(id, enabled); err != nil {
			if errors.Is(err, domain.ErrUnknownBackend) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		s.logger.Info("Backend toggled", "backend", id, "enabled", enabled)
		writeJSON(w, http.StatusOK, backend.Info{ID: id, Enabled: enabled})
	}
}

// TaskRequest is the body of POST /tasks.
type TaskRequest struct {
	domain.Task
	Backends []string `json:"backends,omitempty"`
}

// maxTaskBody caps the size of a POST /tasks request.
const maxTaskBody = 1 << 20

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTaskBody)

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		writeError(w, code, fmt.Errorf("decode task: %w", err))
		return
	}

	res, err := s.dispatcher.Execute(r.Context(), req.Task, req.Backends)
	switch {
	case errors.Is(err, domain.ErrNoAvailableBackends):
		writeJSON(w, http.StatusServiceUnavailable, resultWithError{res, err.Error()})
	case errors.Is(err, domain.ErrDeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, resultWithError{res, err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, resultWithError{res, err.Error()})
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

type resultWithError struct {
	*domain.ExecutionResult
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
