package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ayusman/drishti/internal/gesture"
	"github.com/ayusman/drishti/internal/haptic"
)

// DefaultTriggerDelay is how long after a mode activation the deferred
// scene analysis fires.
const DefaultTriggerDelay = 1500 * time.Millisecond

// Machine state errors returned to explicit callers (API, tray).
var (
	// ErrLocked means a locked session refused an explicit mode change.
	ErrLocked = errors.New("session is locked")
	// ErrBusy means an analysis is already in flight.
	ErrBusy = errors.New("analysis already in progress")
	// ErrIdle means a capture was requested with no active mode.
	ErrIdle = errors.New("no active mode")
)

// TriggerSource says what started an analysis call.
type TriggerSource string

const (
	// SourceAuto is the deferred trigger scheduled by a mode activation.
	SourceAuto TriggerSource = "auto"
	// SourceManual is an explicit capture request.
	SourceManual TriggerSource = "manual"
)

// Speaker announces text to the user. Implementations are fire-and-forget
// and must interrupt any in-progress utterance.
type Speaker interface {
	Speak(text string, premium bool)
}

// Analyzer describes the current camera view for the given mode. Calls are
// long-running I/O; timeouts are the implementation's responsibility.
type Analyzer interface {
	Analyze(ctx context.Context, mode Mode) (string, error)
}

// Navigator starts and stops walking navigation. Start returns the first
// spoken instruction of the route.
type Navigator interface {
	Start(ctx context.Context, destination string) (string, error)
	Stop()
}

// Capture is the record of one analysis invocation.
type Capture struct {
	Mode        Mode
	Source      TriggerSource
	Description string
	Err         error
	Elapsed     time.Duration
}

// Recorder persists analysis records. Record must not block the caller for
// long; it runs on the analysis completion path.
type Recorder interface {
	Record(c Capture)
}

// Config wires the Machine to its collaborators. Any collaborator may be
// nil; the corresponding effects are then dropped (Speaker, Pulser,
// Recorder) or fail (Analyzer, Navigator).
type Config struct {
	TriggerDelay time.Duration
	Speaker      Speaker
	Pulser       haptic.Pulser
	Analyzer     Analyzer
	Navigator    Navigator
	Recorder     Recorder

	// OnTransition is invoked after every state change, outside the
	// machine's lock. Used to push session state to UI clients.
	OnTransition func(State)
}

// Machine executes the mode state machine: it serializes all session state
// mutation, runs transition effects, and owns the deferred analysis
// trigger. Gesture polls, trigger firings, manual captures and navigation
// calls may arrive from different goroutines; every mutation goes through
// the single mutex, and anything that ran off the lock re-validates state
// before acting.
type Machine struct {
	cfg   Config
	mu    sync.Mutex
	state State
}

// NewMachine creates a Machine in the initial idle state.
func NewMachine(cfg Config) *Machine {
	if cfg.TriggerDelay <= 0 {
		cfg.TriggerDelay = DefaultTriggerDelay
	}
	return &Machine{
		cfg:   cfg,
		state: Initial(),
	}
}

// State returns a snapshot of the current session state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HandleGesture feeds one classified gesture from the polling pipeline.
func (m *Machine) HandleGesture(g gesture.Gesture) {
	m.applyEvent(GestureEvent{Gesture: g})
}

// Stop is the explicit stop action (tray, API). Equivalent to a fist.
func (m *Machine) Stop() {
	m.applyEvent(StopEvent{})
}

// StartNavigation asks the navigator for a route and, if the session is
// still in the state it left when the route arrives, locks into navigation
// mode.
func (m *Machine) StartNavigation(ctx context.Context, destination string) error {
	m.mu.Lock()
	locked := m.state.Locked
	startGen := m.state.Generation
	m.mu.Unlock()
	if locked {
		return ErrLocked
	}
	if m.cfg.Navigator == nil {
		return errors.New("no navigator configured")
	}

	// Route lookup is long-running I/O and runs off the lock.
	first, err := m.cfg.Navigator.Start(ctx, destination)
	if err != nil {
		m.speak("Sorry, I couldn't start navigation", false)
		return err
	}

	// The session may have moved while the route was being fetched: a
	// gesture activation, a reset, or a competing navigation start. Any
	// generation change means this call's route lost and is abandoned.
	m.mu.Lock()
	if m.state.Generation != startGen {
		winnerNavigating := m.state.Mode == ModeNavigation && m.state.Locked
		m.mu.Unlock()
		// Clear the fetched route, unless a competing start won and the
		// navigator now holds that call's route.
		if !winnerNavigating {
			m.cfg.Navigator.Stop()
		}
		return ErrLocked
	}
	next, effects := Transition(m.state, NavigationStartedEvent{})
	m.state = next
	m.mu.Unlock()

	m.notify(next)
	m.runEffects(effects)

	if first != "" {
		m.speak(first, false)
	}
	return nil
}

// ManualCapture runs a scene analysis for the active mode right away.
// It fails when the session is idle or an analysis is already in flight.
func (m *Machine) ManualCapture() error {
	m.mu.Lock()
	next, ok := beginManual(m.state)
	if !ok {
		idle := m.state.Mode == ModeIdle
		m.mu.Unlock()
		if idle {
			return ErrIdle
		}
		return ErrBusy
	}
	m.state = next
	mode, gen := next.Mode, next.Generation
	m.mu.Unlock()

	m.notify(next)
	go m.runAnalysis(mode, gen, SourceManual)
	return nil
}

// Announce speaks text through the configured speaker with the standard
// voice. Used by collaborators that produce user-facing text outside the
// transition flow, like navigation step advances.
func (m *Machine) Announce(text string) {
	m.speak(text, false)
}

// applyEvent runs one event through the pure transition under the lock and
// executes the resulting effects outside it.
func (m *Machine) applyEvent(ev Event) State {
	m.mu.Lock()
	prev := m.state
	next, effects := Transition(m.state, ev)
	m.state = next
	m.mu.Unlock()

	if next != prev {
		m.notify(next)
	}
	m.runEffects(effects)
	return next
}

func (m *Machine) runEffects(effects []Effect) {
	for _, eff := range effects {
		switch e := eff.(type) {
		case SpeakEffect:
			m.speak(e.Text, e.Premium)
		case PulseEffect:
			if m.cfg.Pulser != nil {
				m.cfg.Pulser.Pulse(e.Intensity)
			}
		case ScheduleAnalysisEffect:
			mode, gen := e.Mode, e.Generation
			time.AfterFunc(m.cfg.TriggerDelay, func() {
				m.fireTrigger(mode, gen)
			})
		case StopNavigationEffect:
			if m.cfg.Navigator != nil {
				m.cfg.Navigator.Stop()
			}
		}
	}
}

// fireTrigger is the deferred trigger callback. It re-validates the
// activation generation at fire time; a stale trigger is a silent no-op.
func (m *Machine) fireTrigger(mode Mode, gen uint64) {
	m.mu.Lock()
	next, ok := beginTriggered(m.state, mode, gen)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.state = next
	m.mu.Unlock()

	m.notify(next)
	m.runAnalysis(mode, gen, SourceAuto)
}

// runAnalysis performs one analysis call. The processing flag is already
// set; it is cleared here on success and failure alike. The result is
// re-validated against the activation generation on completion: when the
// user reset or switched modes while the analyzer ran, the transcript gets
// the record but nothing is spoken.
func (m *Machine) runAnalysis(mode Mode, gen uint64, source TriggerSource) {
	start := time.Now()

	var text string
	var err error
	if m.cfg.Analyzer == nil {
		err = errors.New("no analyzer configured")
	} else {
		text, err = m.cfg.Analyzer.Analyze(context.Background(), mode)
	}

	m.mu.Lock()
	m.state = finishAnalysis(m.state)
	next := m.state
	stale := next.Generation != gen
	m.mu.Unlock()
	m.notify(next)

	if m.cfg.Recorder != nil {
		m.cfg.Recorder.Record(Capture{
			Mode:        mode,
			Source:      source,
			Description: text,
			Err:         err,
			Elapsed:     time.Since(start),
		})
	}

	if err != nil {
		log.Printf("scene analysis failed (%s, %s): %v", mode, source, err)
		if !stale {
			m.speak("Sorry, the scene analysis failed", false)
		}
		return
	}
	if stale {
		return
	}
	m.speak(text, true)
}

func (m *Machine) speak(text string, premium bool) {
	if m.cfg.Speaker == nil || text == "" {
		return
	}
	m.cfg.Speaker.Speak(text, premium)
}

func (m *Machine) notify(s State) {
	if m.cfg.OnTransition != nil {
		m.cfg.OnTransition(s)
	}
}
