package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/geocluster/pkg/metrics"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	exposition http.Handler
}

// NewHealthHandler creates a health handler serving the custom metrics registry.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		exposition: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz requests. Clients asking for JSON get a
// status object; everyone else gets the Prometheus exposition.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	h.exposition.ServeHTTP(w, r)
}
