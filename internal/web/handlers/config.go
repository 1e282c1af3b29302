package handlers

import (
	"net/http"

	"github.com/veidt/faceprobe/internal/metric"
)

// ConfigHandler exposes the active configuration to the frontend.
type ConfigHandler struct {
	deps *Deps
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(deps *Deps) *ConfigHandler {
	return &ConfigHandler{deps: deps}
}

// Get returns the models, metrics and active settings. The model is fixed
// at server startup because the template embeddings depend on it; metric
// and threshold are per-request overrides on the identify endpoint.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"models":      h.deps.Config.ModelNames(),
		"metrics":     metric.Metrics(),
		"model":       h.deps.Provider.Model(),
		"metric":      string(h.deps.Metric),
		"threshold":   h.deps.Threshold,
		"templates":   h.deps.Store.Len(),
		"individuals": h.deps.Store.PersonCount(),
	})
}
