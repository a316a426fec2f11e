// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/paulmach/orb/geojson"

	"github.com/okian/geocluster/internal/domain/clustering"
	"github.com/okian/geocluster/internal/domain/model"
	"github.com/okian/geocluster/internal/domain/record"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ClusterDependencies
	JobDependencies
}

// Server wires HTTP routes for the clustering API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	clusterHandler *ClusterHandler
	jobsHandler    *JobsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		clusterHandler: NewClusterHandler(deps, opts...),
		jobsHandler:    NewJobsHandler(deps, opts...),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/cluster", MetricsMiddleware(s.clusterHandler.HandleCluster, "cluster"))
	mux.HandleFunc("/jobs", MetricsMiddleware(s.jobsHandler.HandleJobs, "jobs"))
	mux.HandleFunc("/jobs/", MetricsMiddleware(s.jobsHandler.HandleGetJob, "job"))
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

func writeGeoJSON(w http.ResponseWriter, status int, fc *geojson.FeatureCollection) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(fc)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service error kinds to a status and code.
func writeServiceError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, record.ErrSchema), errors.Is(err, record.ErrEmpty):
		writeError(w, http.StatusBadRequest, "schema_error", err)
	case errors.Is(err, record.ErrCoordinate):
		writeError(w, http.StatusBadRequest, "coordinate_error", err)
	case errors.Is(err, clustering.ErrInvalidParams), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrUnsupported):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", err)
	case errors.Is(err, model.ErrTooManyRecords), errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.Is(err, model.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, model.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, model.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
