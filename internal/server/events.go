package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/drishti/internal/capture"
	"github.com/ayusman/drishti/internal/detector"
	"github.com/ayusman/drishti/internal/haptic"
	"github.com/ayusman/drishti/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// eventClient wraps one WebSocket connection. gorilla/websocket allows only
// one concurrent writer per connection, and the hub is written to from the
// transition hook, the pulse effects and the landmark feed at once, so every
// write goes through the client's own mutex.
type eventClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *eventClient) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// EventHub pushes real-time events to UI clients over WebSocket: session
// state changes, haptic pulses and live hand landmarks.
type EventHub struct {
	detector detector.Detector
	camera   capture.Camera
	clients  map[*eventClient]bool
	mu       sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewEventHub creates an EventHub. Camera and detector may be nil, in which
// case no landmark feed runs.
func NewEventHub(c capture.Camera, d detector.Detector) *EventHub {
	h := &EventHub{
		detector: d,
		camera:   c,
		clients:  make(map[*eventClient]bool),
		done:     make(chan struct{}),
	}
	if c != nil && d != nil {
		go h.landmarkLoop()
	}
	return h
}

// Close stops the landmark feed. Connected clients keep their connections;
// they close from their own end. Safe to call more than once.
func (h *EventHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	client := &eventClient{conn: conn}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// BroadcastState pushes a session state change to all clients. It is wired
// to the session machine's transition hook.
func (h *EventHub) BroadcastState(s session.State) {
	h.broadcast("session", s)
}

// BroadcastPulse pushes a haptic pulse to all clients; supporting devices
// vibrate on it. It satisfies the haptic Pulser contract via haptic.Func.
func (h *EventHub) BroadcastPulse(intensity haptic.Intensity) {
	h.broadcast("pulse", map[string]string{"intensity": string(intensity)})
}

func (h *EventHub) broadcast(kind string, payload any) {
	msg, err := json.Marshal(map[string]any{
		"type":      kind,
		"data":      payload,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	// Snapshot the client set, then write outside the hub lock so a slow
	// client cannot hold up registration.
	h.mu.RLock()
	clients := make([]*eventClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.write(msg)
	}
}

// landmarkLoop feeds live hand landmarks to connected clients until the hub
// is closed.
func (h *EventHub) landmarkLoop() {
	ticker := time.NewTicker(66 * time.Millisecond) // ~15 FPS
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		h.mu.RLock()
		idle := len(h.clients) == 0
		h.mu.RUnlock()
		if idle {
			continue
		}

		frame, err := h.camera.ReadFrame()
		if err != nil {
			continue
		}

		hands, err := h.detector.Detect(frame)
		frame.Close()
		if err != nil {
			continue
		}

		h.broadcast("landmarks", map[string]any{"hands": hands})
	}
}
