package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/geocluster/internal/domain/model"
)

// JobDependencies manages asynchronous clustering jobs.
type JobDependencies interface {
	Submit(ctx context.Context, req model.ClusterRequest) (model.Submission, error)
	Job(ctx context.Context, id string) (model.JobRecord, error)
	Jobs(ctx context.Context, status model.JobStatus, limit int) ([]model.JobRecord, error)
}

const defaultListLimit = 50

// JobsHandler handles job submission and lookup.
type JobsHandler struct {
	deps JobDependencies
	cfg  settings
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps JobDependencies, opts ...Option) *JobsHandler {
	return &JobsHandler{deps: deps, cfg: newSettings(opts)}
}

// HandleJobs handles POST /jobs (submit) and GET /jobs (list).
func (h *JobsHandler) HandleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.submit(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

func (h *JobsHandler) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.maxBodyBytes)
	req, err := decodeClusterRequest(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sub, err := h.deps.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusAccepted
	if sub.Duplicate {
		status = http.StatusOK
	}
	w.Header().Set("Location", "/jobs/"+sub.JobID)
	writeJSON(w, status, sub)
}

func (h *JobsHandler) list(w http.ResponseWriter, r *http.Request) {
	const op = "api.listJobs"

	q := r.URL.Query()
	status := model.JobStatus(strings.ToLower(q.Get("status")))
	switch status {
	case "", model.JobPending, model.JobRunning, model.JobDone, model.JobFailed:
	default:
		writeServiceError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("unknown status %q", status)))
		return
	}

	limit := defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeServiceError(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		if n <= 0 {
			writeServiceError(w, NewKind(op+": limit must be positive", ErrBadRequest))
			return
		}
		limit = n
	}

	jobs, err := h.deps.Jobs(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if jobs == nil {
		jobs = []model.JobRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// HandleGetJob handles GET /jobs/{id} requests.
func (h *JobsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	job, err := h.deps.Job(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
