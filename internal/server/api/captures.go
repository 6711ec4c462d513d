package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/drishti/internal/session"
	"github.com/ayusman/drishti/internal/store"
)

// CaptureHandler triggers a manual scene analysis for the active mode.
type CaptureHandler struct {
	machine *session.Machine
}

// NewCaptureHandler creates a new CaptureHandler with the given machine.
func NewCaptureHandler(m *session.Machine) *CaptureHandler {
	return &CaptureHandler{machine: m}
}

// ServeHTTP handles POST requests to /api/capture.
func (h *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := h.machine.ManualCapture()
	switch {
	case errors.Is(err, session.ErrIdle):
		writeError(w, http.StatusConflict, "no active mode")
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, "analysis already in progress")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "capturing"})
	}
}

// CapturesHandler serves the analysis transcript.
type CapturesHandler struct {
	store *store.Store
}

// NewCapturesHandler creates a new CapturesHandler with the given store.
func NewCapturesHandler(s *store.Store) *CapturesHandler {
	return &CapturesHandler{store: s}
}

type captureResponse struct {
	ID          string `json:"id"`
	Mode        string `json:"mode"`
	Source      string `json:"source"`
	Description string `json:"description"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	ElapsedMs   int64  `json:"elapsed_ms"`
	CreatedAt   string `json:"created_at"`
}

type listCapturesResponse struct {
	Captures []captureResponse `json:"captures"`
}

// ServeHTTP handles GET requests to /api/captures.
func (h *CapturesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	captures, err := h.store.Captures().ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := listCapturesResponse{Captures: make([]captureResponse, 0, len(captures))}
	for _, c := range captures {
		resp.Captures = append(resp.Captures, captureResponse{
			ID:          c.ID,
			Mode:        c.Mode,
			Source:      c.Source,
			Description: c.Description,
			OK:          c.OK,
			Error:       c.Error,
			ElapsedMs:   c.ElapsedMs,
			CreatedAt:   c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
