// Package session owns the gesture-driven mode state machine at the centre
// of Drishti. Mode transitions are decided by a pure function over a small
// immutable state; side effects (speech, haptics, deferred analysis) are
// described as effect values and executed by the Machine.
package session

import (
	"github.com/ayusman/drishti/internal/gesture"
	"github.com/ayusman/drishti/internal/haptic"
)

// Mode is the application's current operating context.
type Mode string

const (
	ModeIdle          Mode = "idle"
	ModeEnvironment   Mode = "environment"
	ModeCommunication Mode = "communication"
	ModeNavigation    Mode = "navigation"
)

// Label returns the spoken name of the mode.
func (m Mode) Label() string {
	switch m {
	case ModeEnvironment:
		return "Environment"
	case ModeCommunication:
		return "Communication"
	case ModeNavigation:
		return "Navigation"
	default:
		return "Idle"
	}
}

// ModeForGesture maps an activating gesture to its mode. Navigation has no
// activating gesture; it is entered only through an explicit start.
func ModeForGesture(g gesture.Gesture) (Mode, bool) {
	switch g {
	case gesture.OpenPalm:
		return ModeEnvironment, true
	case gesture.PeaceSign:
		return ModeCommunication, true
	default:
		return "", false
	}
}

// State is the session state triple plus an activation generation counter.
// Invariant: Locked implies Mode != ModeIdle. Generation increments on every
// mode change, so a deferred trigger scheduled against an old activation can
// detect that it is stale.
type State struct {
	Mode       Mode   `json:"mode"`
	Locked     bool   `json:"locked"`
	Processing bool   `json:"processing"`
	Generation uint64 `json:"generation"`
}

// Initial returns the state a fresh session starts in.
func Initial() State {
	return State{Mode: ModeIdle}
}

// Event is an input to the transition function.
type Event interface{ isEvent() }

// GestureEvent carries one classified gesture from the polling pipeline.
type GestureEvent struct {
	Gesture gesture.Gesture
}

// NavigationStartedEvent records that the navigator accepted a route.
// Navigation is the only mode entered without a gesture.
type NavigationStartedEvent struct{}

// StopEvent is an explicit user stop (tray or API), equivalent to a fist.
type StopEvent struct{}

func (GestureEvent) isEvent()           {}
func (NavigationStartedEvent) isEvent() {}
func (StopEvent) isEvent()              {}

// Effect describes a side effect requested by a transition. Effects are
// executed by the Machine after the state swap, never inside Transition.
type Effect interface{ isEffect() }

// SpeakEffect requests a spoken announcement.
type SpeakEffect struct {
	Text    string
	Premium bool
}

// PulseEffect requests a haptic pulse.
type PulseEffect struct {
	Intensity haptic.Intensity
}

// ScheduleAnalysisEffect requests a deferred scene analysis for a fresh
// activation. Generation pins the trigger to that activation.
type ScheduleAnalysisEffect struct {
	Mode       Mode
	Generation uint64
}

// StopNavigationEffect requests that the navigator abandon the active route.
type StopNavigationEffect struct{}

func (SpeakEffect) isEffect()            {}
func (PulseEffect) isEffect()            {}
func (ScheduleAnalysisEffect) isEffect() {}
func (StopNavigationEffect) isEffect()   {}

// Transition is the pure decision function: given the current state and one
// event it returns the next state and the effects to run. It never blocks
// and never touches collaborators.
func Transition(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case GestureEvent:
		return gestureTransition(s, e.Gesture)
	case NavigationStartedEvent:
		if s.Locked {
			return s, nil
		}
		next := State{Mode: ModeNavigation, Locked: true, Processing: s.Processing, Generation: s.Generation + 1}
		return next, []Effect{
			SpeakEffect{Text: "Navigation started"},
			PulseEffect{Intensity: haptic.Medium},
		}
	case StopEvent:
		return reset(s)
	default:
		return s, nil
	}
}

func gestureTransition(s State, g gesture.Gesture) (State, []Effect) {
	// Fist always wins: the only gesture that can break a lock.
	if g == gesture.Fist && (s.Mode != ModeIdle || s.Locked) {
		return reset(s)
	}

	// Locked states ignore everything else until a fist arrives.
	if s.Locked {
		return s, nil
	}

	// Idle activation.
	if s.Mode == ModeIdle {
		if mode, ok := ModeForGesture(g); ok {
			next := State{Mode: mode, Locked: true, Processing: s.Processing, Generation: s.Generation + 1}
			return next, []Effect{
				SpeakEffect{Text: mode.Label() + " activated and locked"},
				PulseEffect{Intensity: haptic.Medium},
				ScheduleAnalysisEffect{Mode: mode, Generation: next.Generation},
			}
		}
	}

	return s, nil
}

// reset returns the session to idle. The processing flag is left alone:
// an in-flight analysis clears it itself on completion.
func reset(s State) (State, []Effect) {
	if s.Mode == ModeIdle && !s.Locked {
		return s, nil
	}

	var effects []Effect
	text := "Stopped"
	if s.Mode == ModeNavigation {
		effects = append(effects, StopNavigationEffect{})
		text = "Navigation stopped"
	}
	effects = append(effects,
		SpeakEffect{Text: text},
		PulseEffect{Intensity: haptic.Light},
	)

	next := State{Mode: ModeIdle, Locked: false, Processing: s.Processing, Generation: s.Generation + 1}
	return next, effects
}

// beginTriggered validates a deferred trigger at fire time and, if the
// activation it was scheduled for is still current, marks the session as
// processing. A false return means the trigger went stale and must be a
// silent no-op.
func beginTriggered(s State, mode Mode, gen uint64) (State, bool) {
	if s.Generation != gen || s.Mode != mode || !s.Locked || s.Processing {
		return s, false
	}
	s.Processing = true
	return s, true
}

// beginManual validates a manual capture request: any non-idle mode may
// capture as long as no analysis is in flight.
func beginManual(s State) (State, bool) {
	if s.Mode == ModeIdle || s.Processing {
		return s, false
	}
	s.Processing = true
	return s, true
}

// finishAnalysis clears the processing flag once an analysis call resolves,
// whether it succeeded or failed.
func finishAnalysis(s State) State {
	s.Processing = false
	return s
}
