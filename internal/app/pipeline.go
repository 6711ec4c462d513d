package app

import (
	"log"
	"time"

	"github.com/ayusman/drishti/internal/gesture"
)

// runPipeline is the main loop that turns camera frames into gesture polls.
// It ticks at the fixed gesture cadence and manages the idle/active motion
// gate that keeps hand detection off while nothing moves.
//
// Pipeline logic:
// 1. Start in idle mode (idleFPS=5), no hand detection
// 2. On motion detected, switch to active mode (activeFPS=15)
// 3. Run hand detection and classify the first hand
// 4. Feed the classified gesture to the session machine
// 5. After 2s without motion, switch back to idle mode
//
// Every tick delivers exactly one gesture to the machine; ticks with no
// hand, a gated detector or a read error deliver Unknown, which the
// machine treats as a no-op.
func (a *App) runPipeline(stopCh chan struct{}) {
	activeMode := false
	lastMotionTime := time.Now()

	ticker := time.NewTicker(GesturePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// Skip processing if detection is disabled
			if !a.IsEnabled() {
				continue
			}

			g := gesture.Unknown

			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				a.feed(g)
				continue
			}

			// Step 1: Motion gate
			motionDetected, _ := a.motion.Detect(frame)

			if motionDetected {
				lastMotionTime = time.Now()

				if !activeMode {
					activeMode = true
					a.camera.SetFPS(ActiveFPS)
					log.Println("Switched to active mode")
				}
			} else if activeMode && time.Since(lastMotionTime) > IdleTimeout {
				activeMode = false
				a.camera.SetFPS(IdleFPS)
				log.Println("Switched to idle mode")
			}

			// Step 2: Hand detection, only while the scene is moving
			det := a.Detector()
			if !activeMode || det == nil {
				frame.Close()
				a.feed(g)
				continue
			}

			hands, err := det.Detect(frame)
			frame.Close()

			if err != nil {
				log.Printf("Error detecting hands: %v", err)
				a.feed(g)
				continue
			}

			// Step 3: Classification. Only the first hand commands.
			if len(hands) > 0 {
				result := gesture.Classify(&hands[0])
				g = result.Gesture
			}

			a.feed(g)
		}
	}
}

// feed delivers one polled gesture to the session machine.
func (a *App) feed(g gesture.Gesture) {
	m := a.Machine()
	if m == nil {
		return
	}
	m.HandleGesture(g)
}
