package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/drishti/internal/nav"
	"github.com/ayusman/drishti/internal/session"
	"github.com/ayusman/drishti/internal/store"
)

// NavigationHandler starts, advances and stops walking navigation.
type NavigationHandler struct {
	machine *session.Machine
	nav     *nav.Service
	store   *store.Store
}

// NewNavigationHandler creates a new NavigationHandler. The store may be
// nil; saved-destination lookup is then disabled.
func NewNavigationHandler(m *session.Machine, n *nav.Service, s *store.Store) *NavigationHandler {
	return &NavigationHandler{machine: m, nav: n, store: s}
}

// ServeHTTP implements the http.Handler interface.
func (h *NavigationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/navigation or /api/navigation/advance
	path := strings.TrimPrefix(r.URL.Path, "/api/navigation")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		h.status(w, r)
	case path == "" && r.Method == http.MethodPost:
		h.startNavigation(w, r)
	case path == "" && r.Method == http.MethodDelete:
		h.stop(w, r)
	case path == "advance" && r.Method == http.MethodPost:
		h.advance(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type startNavigationRequest struct {
	Destination string `json:"destination"`
	Label       string `json:"label"`
}

type navigationResponse struct {
	Navigating  bool       `json:"navigating"`
	Instruction string     `json:"instruction,omitempty"`
	Steps       []nav.Step `json:"steps,omitempty"`
}

func (h *NavigationHandler) status(w http.ResponseWriter, r *http.Request) {
	resp := navigationResponse{Navigating: h.nav.Active()}
	if instruction, ok := h.nav.CurrentInstruction(); ok {
		resp.Instruction = instruction
		resp.Steps = h.nav.Steps()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *NavigationHandler) startNavigation(w http.ResponseWriter, r *http.Request) {
	var req startNavigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	destination := req.Destination
	if destination == "" && req.Label != "" && h.store != nil {
		saved, err := h.store.Destinations().GetByLabel(req.Label)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no saved destination with that label")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		destination = saved.Query
	}
	if destination == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}

	err := h.machine.StartNavigation(r.Context(), destination)
	switch {
	case errors.Is(err, session.ErrLocked):
		writeError(w, http.StatusConflict, "session is locked")
	case errors.Is(err, nav.ErrNoLocation):
		writeError(w, http.StatusServiceUnavailable, "current location unavailable")
	case errors.Is(err, nav.ErrNoRoute):
		writeError(w, http.StatusNotFound, "no route found")
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		instruction, _ := h.nav.CurrentInstruction()
		writeJSON(w, http.StatusOK, navigationResponse{
			Navigating:  true,
			Instruction: instruction,
			Steps:       h.nav.Steps(),
		})
	}
}

func (h *NavigationHandler) advance(w http.ResponseWriter, r *http.Request) {
	if !h.nav.Active() {
		writeError(w, http.StatusConflict, "not navigating")
		return
	}

	instruction, ok := h.nav.AdvanceStep()
	if !ok {
		// Route exhausted: release the session lock, then announce
		// arrival (the later utterance wins the speaker).
		h.machine.Stop()
		h.machine.Announce("You have arrived at your destination")
		writeJSON(w, http.StatusOK, navigationResponse{Navigating: false})
		return
	}

	h.machine.Announce(instruction)
	writeJSON(w, http.StatusOK, navigationResponse{Navigating: true, Instruction: instruction})
}

func (h *NavigationHandler) stop(w http.ResponseWriter, r *http.Request) {
	// Stop routes through the machine so the reset announcement and
	// the navigator teardown both happen.
	h.machine.Stop()
	writeJSON(w, http.StatusOK, navigationResponse{Navigating: false})
}
