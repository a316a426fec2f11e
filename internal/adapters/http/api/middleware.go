package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/geocluster/pkg/metrics"
)

// errorKinds labels error responses in metrics. Unlisted 4xx codes are
// client_error and unlisted 5xx codes are server_error.
var errorKinds = map[int]string{
	http.StatusBadRequest:            "invalid_data",
	http.StatusNotFound:              "not_found",
	http.StatusMethodNotAllowed:      "method_not_allowed",
	http.StatusRequestEntityTooLarge: "too_large",
	http.StatusUnsupportedMediaType:  "unsupported_media_type",
	http.StatusTooManyRequests:       "rate_limit",
	http.StatusServiceUnavailable:    "unavailable",
}

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		ms := float64(time.Since(start).Microseconds()) / 1000
		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, ms)

		if rec.status < http.StatusBadRequest {
			return
		}
		kind := errorKind(rec.status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
		metrics.RecordErrorByType(kind, errorSeverity(rec.status))
		metrics.RecordErrorLatency("http", kind, ms)
	}
}

func errorKind(status int) string {
	if kind, ok := errorKinds[status]; ok {
		return kind
	}
	if status >= http.StatusInternalServerError {
		return "server_error"
	}
	return "client_error"
}

func errorSeverity(status int) string {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		return "medium"
	case status >= http.StatusInternalServerError:
		return "high"
	default:
		return "low"
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
