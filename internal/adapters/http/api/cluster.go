package api

import (
	"context"
	"net/http"

	"github.com/paulmach/orb/geojson"

	"github.com/okian/geocluster/internal/domain/model"
	"github.com/okian/geocluster/pkg/logger"
)

// ClusterDependencies runs synchronous clustering requests.
type ClusterDependencies interface {
	Cluster(ctx context.Context, req model.ClusterRequest) (*model.ClusterResponse, error)
	ClusterGeoJSON(ctx context.Context, req model.ClusterRequest) (*geojson.FeatureCollection, error)
}

// ClusterHandler handles synchronous clustering.
type ClusterHandler struct {
	deps ClusterDependencies
	cfg  settings
}

// NewClusterHandler creates a new cluster handler.
func NewClusterHandler(deps ClusterDependencies, opts ...Option) *ClusterHandler {
	return &ClusterHandler{deps: deps, cfg: newSettings(opts)}
}

// HandleCluster handles POST /cluster requests.
func (h *ClusterHandler) HandleCluster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.maxBodyBytes)

	req, err := decodeClusterRequest(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if wantsGeoJSON(r) {
		fc, err := h.deps.ClusterGeoJSON(r.Context(), req)
		if err != nil {
			h.logFailure(r, err)
			writeServiceError(w, err)
			return
		}
		writeGeoJSON(w, http.StatusOK, fc)
		return
	}

	resp, err := h.deps.Cluster(r.Context(), req)
	if err != nil {
		h.logFailure(r, err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ClusterHandler) logFailure(r *http.Request, err error) {
	h.cfg.log.Debug(r.Context(), "cluster request rejected",
		logger.String("remote", r.RemoteAddr),
		logger.Error(err))
}
