// Package api provides the JSON handlers of the debug server.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/store"
)

// ProfilesPath is the collection path served by ProfileHandler.
const ProfilesPath = "/api/calibration/profiles"

// ProfileHandler handles HTTP requests for calibration profiles.
type ProfileHandler struct {
	store *store.Store
}

// NewProfileHandler creates a new ProfileHandler with the given store.
func NewProfileHandler(s *store.Store) *ProfileHandler {
	return &ProfileHandler{store: s}
}

// ServeHTTP routes /api/calibration/profiles and /api/calibration/profiles/{name}.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, ProfilesPath), "/")

	if name == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, name)
	case http.MethodPut:
		h.put(w, r, name)
	case http.MethodDelete:
		h.delete(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type putProfileRequest struct {
	Entries map[string]calibration.Entry `json:"entries"`
}

type profileResponse struct {
	ID        string                       `json:"id"`
	Name      string                       `json:"name"`
	Entries   map[string]calibration.Entry `json:"entries,omitempty"`
	CreatedAt string                       `json:"created_at"`
	UpdatedAt string                       `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(p *store.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Entries:   p.Entries,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}

func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	response := listProfilesResponse{Profiles: make([]profileResponse, 0, len(profiles))}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toResponse(p))
	}
	WriteJSON(w, http.StatusOK, response)
}

func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, name string) {
	p, err := h.store.Profiles().Get(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Profile not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}
	WriteJSON(w, http.StatusOK, toResponse(p))
}

// put creates the profile or replaces its entries.
func (h *ProfileHandler) put(w http.ResponseWriter, r *http.Request, name string) {
	var req putProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	for feature, e := range req.Entries {
		if _, err := e.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, "Entry "+feature+": "+err.Error())
			return
		}
	}

	p := &store.Profile{Name: name, Entries: req.Entries}
	if err := h.store.Profiles().Save(p); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}
	WriteJSON(w, http.StatusOK, toResponse(p))
}

func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.store.Profiles().Delete(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Profile not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
