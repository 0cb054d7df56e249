// Package api exposes the remediation pipeline and audit history over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/remediation/pipeline"
)

// FailureHandler runs a failure through the remediation pipeline.
type FailureHandler interface {
	Handle(ctx context.Context, f *domain.Failure) pipeline.Result
}

// History reads the audit log.
type History interface {
	DefaultLimit() int
	Limit(limit int) int
	GetErrorHistory(ctx context.Context, limit int) ([]*domain.ErrorRecord, error)
	GetCorrectionHistory(ctx context.Context, limit int) ([]*domain.CorrectionRecord, error)
	GetError(ctx context.Context, id string) (*domain.ErrorRecord, error)
	GetCorrection(ctx context.Context, errorID string) (*domain.CorrectionRecord, error)
}

// Routes is implemented by components that mount extra endpoints.
type Routes interface {
	Register(mux *http.ServeMux)
}

// Server provides the HTTP API.
type Server struct {
	failures FailureHandler
	history  History
	log      *slog.Logger
	handler  http.Handler
	server   *http.Server
}

// NewServer creates a new API server. extra routes (health, metrics) are
// mounted on the same mux.
func NewServer(port int, failures FailureHandler, history History, log *slog.Logger, extra ...Routes) *Server {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()
	s := &Server{
		failures: failures,
		history:  history,
		log:      log,
	}

	mux.HandleFunc("POST /api/failures", s.handleFailure)
	mux.HandleFunc("GET /api/errors", s.handleErrorHistory)
	mux.HandleFunc("GET /api/errors/{id}", s.handleErrorDetail)
	mux.HandleFunc("GET /api/corrections", s.handleCorrectionHistory)
	for _, r := range extra {
		r.Register(mux)
	}

	s.handler = s.logRequests(s.recoverPanics(mux))
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("Unexpected error", "panic", rec, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
