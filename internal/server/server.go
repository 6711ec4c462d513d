// Package server provides the local HTTP server for the Drishti assistive
// vision system: session status, manual capture, navigation control, the
// camera stream and a WebSocket event feed for the UI.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/drishti/internal/capture"
	"github.com/ayusman/drishti/internal/detector"
	"github.com/ayusman/drishti/internal/nav"
	"github.com/ayusman/drishti/internal/server/api"
	"github.com/ayusman/drishti/internal/session"
	"github.com/ayusman/drishti/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Machine   *session.Machine
	Nav       *nav.Service
	Camera    capture.Camera
	Detector  detector.Detector

	// Events is the WebSocket hub to serve. When nil the server creates
	// its own; the wiring code passes one in so the session machine can
	// broadcast through it.
	Events *EventHub
}

// Server represents the HTTP server for the Drishti application.
type Server struct {
	config Config
	mux    *http.ServeMux
	events *EventHub
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	events := config.Events
	if events == nil {
		events = NewEventHub(config.Camera, config.Detector)
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		events: events,
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// Events returns the WebSocket event hub, so the wiring code can point the
// session machine's transition hook and the haptic pulser at it.
func (s *Server) Events() *EventHub {
	return s.events
}

// Close stops the event hub's background feed.
func (s *Server) Close() {
	s.events.Close()
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)

	if s.config.Machine != nil {
		captureHandler := api.NewCaptureHandler(s.config.Machine)
		s.mux.Handle("/api/capture", captureHandler)
	}

	if s.config.Machine != nil && s.config.Nav != nil {
		navHandler := api.NewNavigationHandler(s.config.Machine, s.config.Nav, s.config.Store)
		s.mux.Handle("/api/navigation", navHandler)
		s.mux.Handle("/api/navigation/", navHandler)
	}

	if s.config.Store != nil {
		capturesHandler := api.NewCapturesHandler(s.config.Store)
		s.mux.Handle("/api/captures", capturesHandler)

		destinationsHandler := api.NewDestinationsHandler(s.config.Store)
		s.mux.Handle("/api/destinations", destinationsHandler)
		s.mux.Handle("/api/destinations/", destinationsHandler)
	}

	// Register camera stream endpoint if Camera is configured
	if s.config.Camera != nil {
		streamHandler := NewStreamHandler(s.config.Camera)
		s.mux.Handle("/api/stream", streamHandler)
	}

	s.mux.Handle("/api/events", s.events)

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleStatus reports the current session state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{}
	if s.config.Machine != nil {
		response["session"] = s.config.Machine.State()
	}
	if s.config.Nav != nil {
		instruction, ok := s.config.Nav.CurrentInstruction()
		response["navigating"] = s.config.Nav.Active()
		if ok {
			response["instruction"] = instruction
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
