package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/crux/internal/app"
	"github.com/okian/crux/internal/domain/buffer"
	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/pkg/logger"
)

// frameRequest is one pose frame on the wire. Timestamps arrive in
// milliseconds from session start.
type frameRequest struct {
	Index       int                             `json:"index"`
	TimestampMS float64                         `json:"timestamp_ms"`
	Landmarks   map[model.Joint]landmarkRequest `json:"landmarks"`
}

type landmarkRequest struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Confidence float64 `json:"confidence"`
}

func (f frameRequest) toModel() model.PoseFrame {
	landmarks := make(map[model.Joint]model.Landmark, len(f.Landmarks))
	for j, lm := range f.Landmarks {
		landmarks[j] = model.Landmark{X: lm.X, Y: lm.Y, Z: lm.Z, Confidence: lm.Confidence}
	}
	return model.PoseFrame{
		Index:     f.Index,
		Timestamp: time.Duration(f.TimestampMS * float64(time.Millisecond)),
		Landmarks: landmarks,
	}
}

type framesRequest struct {
	Frames []frameRequest `json:"frames"`
}

// framesResponse reports per-batch intake. Dropped frames are malformed ones;
// they never fail the batch.
type framesResponse struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.svc.StartSession(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id.String()})
}

func (s *Server) handleAppendFrames(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req framesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if len(req.Frames) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: empty frame batch", ErrBadRequest))
		return
	}

	var resp framesResponse
	for _, fr := range req.Frames {
		err := s.svc.AppendFrame(r.Context(), id, fr.toModel())
		switch {
		case err == nil:
			resp.Accepted++
		case errors.Is(err, app.ErrSessionNotFound):
			s.writeServiceError(w, r, err)
			return
		case errors.Is(err, buffer.ErrOutOfOrder), errors.Is(err, buffer.ErrMalformedFrame):
			resp.Dropped++
		default:
			s.writeServiceError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.svc.CompleteSession(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "analyzing"})
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.svc.AbandonSession(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "abandoned"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	report, err := s.svc.Report(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%w: invalid session id", ErrBadRequest))
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service sentinels onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, app.ErrReportNotReady):
		writeError(w, http.StatusConflict, "not_ready", err)
	case errors.Is(err, app.ErrEmptySession):
		writeError(w, http.StatusUnprocessableEntity, "empty_session", err)
	case errors.Is(err, app.ErrBusy):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, app.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		s.log.Error(r.Context(), "unhandled service error", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", nil)
	}
}
