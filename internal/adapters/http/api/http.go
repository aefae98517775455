// Package api exposes the session lifecycle over plain JSON HTTP. Handlers
// stay thin: decode, call the service, map sentinel errors to status codes.
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/pkg/logger"
)

// Service is the application surface the handlers depend on.
type Service interface {
	StartSession(ctx context.Context) (uuid.UUID, error)
	AppendFrame(ctx context.Context, id uuid.UUID, frame model.PoseFrame) error
	CompleteSession(ctx context.Context, id uuid.UUID) error
	AbandonSession(ctx context.Context, id uuid.UUID) error
	Report(ctx context.Context, id uuid.UUID) (*model.SessionReport, error)
}

// Server wires HTTP routes for the assessment API.
type Server struct {
	svc Service
	log logger.Logger
}

// NewServer creates the API server over the given service.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{svc: svc, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions", s.instrument("sessions", s.handleStartSession))
	mux.HandleFunc("POST /v1/sessions/{id}/frames", s.instrument("frames", s.handleAppendFrames))
	mux.HandleFunc("POST /v1/sessions/{id}/complete", s.instrument("complete", s.handleComplete))
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.instrument("abandon", s.handleAbandon))
	mux.HandleFunc("GET /v1/sessions/{id}/report", s.instrument("report", s.handleReport))
	mux.HandleFunc("GET /healthz", s.instrument("healthz", s.handleHealth))
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
