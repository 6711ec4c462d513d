// Package app provides the main application logic for the Drishti assistive
// vision system: it runs the camera pipeline and feeds classified gestures
// into the session machine.
package app

import (
	"log"
	"sync"
	"time"

	"github.com/ayusman/drishti/internal/capture"
	"github.com/ayusman/drishti/internal/detector"
	"github.com/ayusman/drishti/internal/session"
	"github.com/ayusman/drishti/internal/store"
)

// Pipeline timing constants.
const (
	// GesturePollInterval is the fixed cadence at which classified
	// gestures are fed to the session machine.
	GesturePollInterval = 500 * time.Millisecond
	// IdleFPS is the camera frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the camera frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before hand detection is
	// gated off again.
	IdleTimeout = 2 * time.Second
)

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	CameraID     int
	MotionThresh float64
}

// App owns the capture-to-gesture pipeline: camera, motion gate, hand
// detector and classifier, polled on a fixed interval.
type App struct {
	config  Config
	camera  capture.Camera
	motion  *capture.MotionDetector
	machine *session.Machine

	detector detector.Detector
	enabled  bool
	mu       sync.RWMutex
	stopCh   chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // Default threshold: 1% pixel change
	}

	a := &App{
		config: config,
		camera: capture.NewCamera(config.CameraID),
		motion: capture.NewMotionDetector(motionThreshold),
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// AttachMachine connects the session machine the pipeline feeds.
func (a *App) AttachMachine(m *session.Machine) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.machine = m
}

// SetEnabled enables or disables gesture detection.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Start begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	a.camera.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	go a.runPipeline(a.stopCh)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the detection pipeline and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	a.motion.Close()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// CurrentJPEG returns the latest camera frame encoded as JPEG. It makes
// App the frame source for cloud scene analysis.
func (a *App) CurrentJPEG() ([]byte, error) {
	return capture.JPEG(a.camera)
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// MotionDetector returns the motion detector instance.
func (a *App) MotionDetector() *capture.MotionDetector {
	return a.motion
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Machine returns the attached session machine, or nil.
func (a *App) Machine() *session.Machine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.machine
}
