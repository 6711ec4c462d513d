package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/drishti/internal/capture"
)

// mjpegBoundary separates frames in the multipart stream.
const mjpegBoundary = "drishtiframe"

// StreamHandler serves the camera as an MJPEG stream for the dashboard's
// live view. The stream follows the pipeline's camera: when motion gating
// drops the capture rate, the stream slows with it.
type StreamHandler struct {
	camera capture.Camera
}

// NewStreamHandler creates a new StreamHandler with the given camera.
func NewStreamHandler(camera capture.Camera) *StreamHandler {
	return &StreamHandler{camera: camera}
}

// ServeHTTP streams MJPEG frames until the client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	w.Header().Set("Cache-Control", "no-cache")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		jpeg, err := capture.JPEG(h.camera)
		if err != nil {
			// Camera busy or closed; back off and retry.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, err = fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
			mjpegBoundary, len(jpeg))
		if err != nil {
			return
		}
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprint(w, "\r\n")
		flusher.Flush()

		// Pace to the camera's current capture rate.
		fps := h.camera.FPS()
		if fps <= 0 {
			fps = capture.DefaultFPS
		}
		time.Sleep(time.Second / time.Duration(fps))
	}
}
