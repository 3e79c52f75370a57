package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mudra/internal/binding"
)

// Pipeline is the part of the running pipeline the API reads and toggles.
type Pipeline interface {
	Probes() []binding.Probe
	Features() []string
	IsEnabled() bool
	SetEnabled(enabled bool)
}

// PipelineHandler serves the pipeline's probes, feature names and enabled
// state.
type PipelineHandler struct {
	pipeline Pipeline
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(p Pipeline) *PipelineHandler {
	return &PipelineHandler{pipeline: p}
}

type probesResponse struct {
	Enabled  bool            `json:"enabled"`
	Bindings []binding.Probe `json:"bindings"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// Probes handles GET /api/probes.
func (h *PipelineHandler) Probes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, http.StatusOK, h.Snapshot())
}

// Snapshot returns the probe document served by Probes.
func (h *PipelineHandler) Snapshot() any {
	probes := h.pipeline.Probes()
	if probes == nil {
		probes = []binding.Probe{}
	}
	return probesResponse{Enabled: h.pipeline.IsEnabled(), Bindings: probes}
}

// Features handles GET /api/features.
func (h *PipelineHandler) Features(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	names := h.pipeline.Features()
	if names == nil {
		names = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string][]string{"features": names})
}

// Enabled handles GET and PUT /api/enabled.
func (h *PipelineHandler) Enabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req enabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			WriteError(w, http.StatusBadRequest, "Expected {\"enabled\": true|false}")
			return
		}
		h.pipeline.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"enabled": h.pipeline.IsEnabled()})
}
