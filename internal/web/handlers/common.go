// Package handlers implements the HTTP API of the identification UI.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/veidt/faceprobe/internal/config"
	"github.com/veidt/faceprobe/internal/embedding"
	"github.com/veidt/faceprobe/internal/metric"
	"github.com/veidt/faceprobe/internal/store"
)

// MaxUploadSize bounds identify/candidates uploads (32 MB).
const MaxUploadSize = 32 << 20

// Deps bundles what the handlers need: the template store built at server
// startup and the embedding provider for query images. The store is
// immutable, so sharing it across requests is safe.
type Deps struct {
	Config   *config.Config
	Store    *store.Store
	Index    *store.Index
	Provider embedding.Provider
	Metric   metric.Metric
	// Threshold is the default acceptance threshold; requests may
	// override it per call.
	Threshold *float64
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
