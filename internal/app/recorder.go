package app

import (
	"log"

	"github.com/google/uuid"

	"github.com/ayusman/drishti/internal/session"
	"github.com/ayusman/drishti/internal/store"
)

// Recorder persists session analysis records into the store, implementing
// the machine's Recorder contract.
type Recorder struct {
	captures *store.CaptureRepository
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(s *store.Store) *Recorder {
	return &Recorder{captures: s.Captures()}
}

// Record writes one capture to the transcript. Failures are logged, never
// propagated; losing a transcript row must not disturb the session.
func (r *Recorder) Record(c session.Capture) {
	rec := &store.Capture{
		ID:          uuid.NewString(),
		Mode:        string(c.Mode),
		Source:      string(c.Source),
		Description: c.Description,
		OK:          c.Err == nil,
		ElapsedMs:   c.Elapsed.Milliseconds(),
	}
	if c.Err != nil {
		rec.Error = c.Err.Error()
	}

	if err := r.captures.Create(rec); err != nil {
		log.Printf("Failed to record capture: %v", err)
	}
}
