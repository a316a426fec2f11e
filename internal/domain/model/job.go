// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/geocluster/internal/domain/clustering"
	"github.com/okian/geocluster/internal/domain/record"
	"github.com/okian/geocluster/internal/domain/render"
)

// ClusterRequest is one batch of records submitted for clustering.
type ClusterRequest struct {
	// RequestID is an optional client key used for idempotent job submission.
	RequestID string          `json:"request_id,omitempty"`
	Records   []record.Record `json:"records"`
	clustering.Params
}

// Diagnostics reports how the mixture fit went. It never affects labels.
type Diagnostics struct {
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
	LogLikelihood float64 `json:"log_likelihood"`
	Reseeds       int     `json:"reseeds"`
}

// ClusterResponse is the labeled batch plus its render payload.
type ClusterResponse struct {
	Records    []record.Record          `json:"records"`
	K          int                      `json:"k"`
	Strategy   clustering.Strategy      `json:"strategy"`
	Clusters   []render.ClusterGeometry `json:"clusters"`
	Viewport   render.Viewport          `json:"viewport"`
	DurationMS float64                  `json:"duration_ms"`
	// Diagnostics is nil when no model was fitted.
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}

// NewClusterResponse assembles a response from a run and its payload.
func NewClusterResponse(res *clustering.Result, payload render.Payload) *ClusterResponse {
	out := &ClusterResponse{
		Records:    res.Records,
		K:          res.K,
		Strategy:   res.Strategy,
		Clusters:   payload.Clusters,
		Viewport:   payload.Viewport,
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
	}
	if m := res.Model; m != nil {
		out.Diagnostics = &Diagnostics{
			Iterations:    m.Iterations,
			Converged:     m.Converged,
			LogLikelihood: m.LogLikelihood,
			Reseeds:       m.Reseeds,
		}
	}
	return out
}

// JobStatus is the lifecycle state of an asynchronous job.
type JobStatus string

// Job lifecycle states.
const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Terminal reports whether the job will not change state again.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// Job is a queued clustering request.
type Job struct {
	ID          string
	Request     ClusterRequest
	SubmittedAt time.Time
}

// JobRecord is the stored view of a job.
type JobRecord struct {
	ID          string           `json:"job_id"`
	RequestID   string           `json:"request_id,omitempty"`
	Status      JobStatus        `json:"status"`
	Error       string           `json:"error,omitempty"`
	Result      *ClusterResponse `json:"result,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
}

// Submission acknowledges an asynchronous job.
type Submission struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Duplicate bool      `json:"duplicate"`
}
