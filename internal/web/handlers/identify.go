package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/veidt/faceprobe/internal/matcher"
	"github.com/veidt/faceprobe/internal/metric"
)

// IdentifyHandler handles photo-upload identification requests.
type IdentifyHandler struct {
	deps *Deps
}

// NewIdentifyHandler creates a new identify handler.
func NewIdentifyHandler(deps *Deps) *IdentifyHandler {
	return &IdentifyHandler{deps: deps}
}

// identifyResponse is the API shape for an identification.
type identifyResponse struct {
	Result        matcher.Result `json:"result"`
	Metric        string         `json:"metric"`
	Model         string         `json:"model"`
	Threshold     *float64       `json:"threshold,omitempty"`
	TemplateImage string         `json:"template_image,omitempty"`
}

// requestMatchConfig resolves the per-request metric and threshold,
// falling back to the server defaults.
func (h *IdentifyHandler) requestMatchConfig(r *http.Request) (metric.Metric, *float64, error) {
	m := h.deps.Metric
	if name := r.FormValue("metric"); name != "" {
		parsed, err := metric.Parse(name)
		if err != nil {
			return "", nil, err
		}
		m = parsed
	}

	threshold := h.deps.Threshold
	if s := r.FormValue("threshold"); s != "" {
		t, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid threshold %q", s)
		}
		threshold = &t
	}

	return m, threshold, nil
}

// saveUploadedPhoto writes the uploaded photo to a uniquely named temp file
// and returns its path.
func saveUploadedPhoto(fileHeader *multipart.FileHeader, tempDir string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload %s: %w", fileHeader.Filename, err)
	}
	defer file.Close()

	ext := filepath.Ext(fileHeader.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	tempPath := filepath.Join(tempDir, uuid.New().String()+ext)

	out, err := os.Create(tempPath) //nolint:gosec // uuid-generated name
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return "", fmt.Errorf("saving upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return tempPath, nil
}

// Identify matches an uploaded photo against the template store.
// Form fields: file (required), metric, threshold (optional overrides).
func (h *IdentifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	m, threshold, err := h.requestMatchConfig(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, fileHeader, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no photo provided")
		return
	}

	tempDir, err := os.MkdirTemp("", "faceprobe-upload-*")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create temp directory")
		return
	}
	defer os.RemoveAll(tempDir)

	path, err := saveUploadedPhoto(fileHeader, tempDir)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	mt := matcher.New(h.deps.Store, h.deps.Provider, m, threshold)
	result, err := mt.Identify(r.Context(), path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := identifyResponse{
		Result:    result,
		Metric:    string(m),
		Model:     h.deps.Provider.Model(),
		Threshold: threshold,
	}
	if result.Accepted && result.PersonID != "" {
		resp.TemplateImage = h.deps.Store.FirstImage(result.PersonID)
	}

	respondJSON(w, http.StatusOK, resp)
}

// Candidates returns the top-k nearest templates for an uploaded photo.
// Form fields: file (required), k (optional, default 5).
func (h *IdentifyHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	if h.deps.Index == nil {
		respondError(w, http.StatusServiceUnavailable, "candidate index not available")
		return
	}

	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	k := 5
	if s := r.FormValue("k"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid k %q", s))
			return
		}
		k = parsed
	}

	_, fileHeader, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no photo provided")
		return
	}

	tempDir, err := os.MkdirTemp("", "faceprobe-upload-*")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create temp directory")
		return
	}
	defer os.RemoveAll(tempDir)

	path, err := saveUploadedPhoto(fileHeader, tempDir)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query, err := h.deps.Provider.Embed(r.Context(), path)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("embedding failed: %v", err))
		return
	}

	candidates, err := h.deps.Index.Candidates(query, k)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"candidates": candidates,
		"metric":     string(h.deps.Metric),
		"model":      h.deps.Provider.Model(),
	})
}
