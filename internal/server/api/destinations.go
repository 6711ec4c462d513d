package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/drishti/internal/store"
)

// DestinationsHandler handles HTTP requests for saved destinations.
type DestinationsHandler struct {
	store *store.Store
}

// NewDestinationsHandler creates a new DestinationsHandler with the given store.
func NewDestinationsHandler(s *store.Store) *DestinationsHandler {
	return &DestinationsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *DestinationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/destinations or /api/destinations/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/destinations")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createDestinationRequest struct {
	Label string `json:"label"`
	Query string `json:"query"`
}

type destinationResponse struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Query     string `json:"query"`
	CreatedAt string `json:"created_at"`
}

type listDestinationsResponse struct {
	Destinations []destinationResponse `json:"destinations"`
}

func toDestinationResponse(d *store.Destination) destinationResponse {
	return destinationResponse{
		ID:        d.ID,
		Label:     d.Label,
		Query:     d.Query,
		CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *DestinationsHandler) list(w http.ResponseWriter, r *http.Request) {
	destinations, err := h.store.Destinations().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := listDestinationsResponse{Destinations: make([]destinationResponse, 0, len(destinations))}
	for _, d := range destinations {
		resp.Destinations = append(resp.Destinations, toDestinationResponse(d))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *DestinationsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createDestinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}
	if req.Query == "" {
		req.Query = req.Label
	}

	d := &store.Destination{
		ID:    uuid.NewString(),
		Label: req.Label,
		Query: req.Query,
	}

	if err := h.store.Destinations().Create(d); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toDestinationResponse(d))
}

func (h *DestinationsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Destinations().Delete(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "destination not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
