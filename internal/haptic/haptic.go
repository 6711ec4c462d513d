// Package haptic provides the haptic feedback abstraction for mode
// transition cues. The desktop build has no vibration motor, so pulses are
// forwarded to UI clients (which may vibrate on supporting hardware) or
// logged.
package haptic

import "log"

// Intensity selects the strength of a pulse.
type Intensity string

const (
	// Light marks a reset back to idle.
	Light Intensity = "light"
	// Medium marks a mode activation.
	Medium Intensity = "medium"
)

// Pulser emits a single haptic pulse. Implementations are fire-and-forget.
type Pulser interface {
	Pulse(intensity Intensity)
}

// Func adapts a plain function to the Pulser interface, typically a
// WebSocket broadcast into the UI.
type Func func(Intensity)

// Pulse calls f.
func (f Func) Pulse(intensity Intensity) { f(intensity) }

// Logger is a Pulser that writes pulses to the process log. It is the
// default when no UI transport is wired.
type Logger struct{}

// Pulse logs the pulse.
func (Logger) Pulse(intensity Intensity) {
	log.Printf("haptic pulse: %s", intensity)
}

// Null discards all pulses, for headless runs and tests.
type Null struct{}

// Pulse does nothing.
func (Null) Pulse(Intensity) {}
