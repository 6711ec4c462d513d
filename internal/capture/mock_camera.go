package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera is a Camera that plays back a fixed frame sequence, used by
// tests and headless development runs.
type MockCamera struct {
	mu     sync.Mutex
	frames []*gocv.Mat
	next   int
	loop   bool
	fps    int
	open   bool
}

// NewMockCamera creates a camera that serves the given frames in order.
// With loop set, playback wraps around instead of running out.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// Open marks the camera as running and rewinds playback.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.next = 0
	return nil
}

// Close stops playback.
func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// ReadFrame returns a clone of the next frame in the sequence. Callers own
// the returned Mat and must close it.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if len(c.frames) == 0 {
		return nil, errors.New("no frames available")
	}
	if c.next >= len(c.frames) {
		if !c.loop {
			return nil, errors.New("no more frames")
		}
		c.next = 0
	}

	frame := c.frames[c.next].Clone()
	c.next++
	return &frame, nil
}

// SetFPS records the requested rate; playback itself is not throttled.
func (c *MockCamera) SetFPS(fps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fps > 0 {
		c.fps = fps
	}
}

// FPS returns the last requested frame rate.
func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether the camera is running.
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
