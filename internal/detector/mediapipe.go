package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// sidecarIdleShutdown is how long the Python process stays up without a
// detection before it is stopped to free its model memory. It restarts
// transparently on the next Detect.
const sidecarIdleShutdown = 30 * time.Second

// MediaPipeDetector runs hand pose estimation through a Python MediaPipe
// sidecar. The wire protocol is one JPEG per request, prefixed with a
// 4-byte big-endian length, answered by one JSON line.
type MediaPipeDetector struct {
	config Config

	mu        sync.Mutex
	proc      *exec.Cmd
	send      io.WriteCloser
	recv      *bufio.Reader
	running   bool
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates the detector. It fails when the sidecar
// script is not installed; the process itself starts lazily on the first
// Detect call.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	if findMediaPipeScript() == "" {
		return nil, fmt.Errorf("mediapipe_service.py not found")
	}
	return &MediaPipeDetector{config: config}, nil
}

// Detect sends one frame to the sidecar and returns the hands it found.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureRunning(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	line, err := d.roundTrip(buf.GetBytes())
	if err != nil {
		// A broken pipe means the sidecar died; shut down so the next
		// call restarts it.
		d.shutdown()
		return nil, err
	}

	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	hands := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		hands[i] = h.toHandLandmarks()
	}

	d.armIdleTimer()
	return hands, nil
}

// roundTrip writes one length-prefixed JPEG and reads one JSON line back.
func (d *MediaPipeDetector) roundTrip(jpeg []byte) ([]byte, error) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(jpeg)))

	if _, err := d.send.Write(length[:]); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.send.Write(jpeg); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := d.recv.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

// Close stops the sidecar process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureRunning() error {
	if d.running {
		return nil
	}

	scriptPath := findMediaPipeScript()
	if scriptPath == "" {
		return fmt.Errorf("mediapipe_service.py not found")
	}

	python := findVenvPython()
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, scriptPath)
	cmd.Stderr = os.Stderr

	send, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	recv, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.proc = cmd
	d.send = send
	d.recv = bufio.NewReader(recv)
	d.running = true
	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.running {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.send != nil {
		d.send.Close()
	}

	err := d.proc.Wait()
	d.proc = nil
	d.send = nil
	d.recv = nil
	d.running = false
	return err
}

func (d *MediaPipeDetector) armIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(sidecarIdleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// findMediaPipeScript locates the sidecar script, checking the working
// directory, the executable's directory and the user's Drishti home.
func findMediaPipeScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".drishti/scripts/mediapipe_service.py"),
	}
	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a project or user
// virtual environment, so the sidecar does not depend on a system-wide
// mediapipe install.
func findVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".drishti/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
// Per-landmark presence is reported by newer MediaPipe builds; when the
// field is absent the hand score is used for every point.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Presence *float64 `json:"presence,omitempty"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		conf := h.Score
		if h.Points[i].Presence != nil {
			conf = *h.Points[i].Presence
		}
		lm.Points[i] = Landmark{
			X:          h.Points[i].X,
			Y:          h.Points[i].Y,
			Confidence: conf,
		}
	}

	return lm
}
