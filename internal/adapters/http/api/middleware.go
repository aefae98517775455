package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/crux/pkg/logger"
	"github.com/okian/crux/pkg/metrics"
)

// instrument wraps a handler with request metrics and debug logging.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(wrapped.statusCode))
		metrics.RecordHTTPDuration(route, elapsed.Seconds())
		s.log.Debug(r.Context(), "request served",
			logger.String("method", r.Method),
			logger.String("route", route),
			logger.Int("status", wrapped.statusCode),
			logger.Float64("elapsed_ms", float64(elapsed.Milliseconds())))
	}
}

// responseWriter captures the status code for instrumentation.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
