package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/drishti/internal/gesture"
	"github.com/ayusman/drishti/internal/haptic"
)

// Fakes record every call so tests can assert on exact collaborator traffic.

type spokenText struct {
	text    string
	premium bool
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []spokenText
}

func (f *fakeSpeaker) Speak(text string, premium bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, spokenText{text, premium})
}

func (f *fakeSpeaker) all() []spokenText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]spokenText(nil), f.spoken...)
}

func (f *fakeSpeaker) last() (spokenText, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.spoken) == 0 {
		return spokenText{}, false
	}
	return f.spoken[len(f.spoken)-1], true
}

type fakePulser struct {
	mu     sync.Mutex
	pulses []haptic.Intensity
}

func (f *fakePulser) Pulse(i haptic.Intensity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulses = append(f.pulses, i)
}

func (f *fakePulser) all() []haptic.Intensity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]haptic.Intensity(nil), f.pulses...)
}

type fakeAnalyzer struct {
	mu        sync.Mutex
	calls     []Mode
	text      string
	err       error
	done      chan struct{} // closed-signal per call
	analyzing chan struct{} // blocks Analyze until released, when non-nil
}

func newFakeAnalyzer(text string, err error) *fakeAnalyzer {
	return &fakeAnalyzer{text: text, err: err, done: make(chan struct{}, 16)}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, mode Mode) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, mode)
	f.mu.Unlock()
	f.done <- struct{}{}
	if f.analyzing != nil {
		<-f.analyzing
	}
	return f.text, f.err
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// wait blocks until one Analyze call has happened or the deadline passes.
func (f *fakeAnalyzer) wait(t *testing.T, d time.Duration) bool {
	t.Helper()
	select {
	case <-f.done:
		return true
	case <-time.After(d):
		return false
	}
}

type fakeNavigator struct {
	mu       sync.Mutex
	first    string
	err      error
	started  []string
	stops    int
	starting chan struct{} // blocks Start until released, when non-nil
}

func (f *fakeNavigator) Start(ctx context.Context, destination string) (string, error) {
	if f.starting != nil {
		<-f.starting
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, destination)
	return f.first, f.err
}

func (f *fakeNavigator) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeNavigator) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type fakeRecorder struct {
	mu       sync.Mutex
	captures []Capture
}

func (f *fakeRecorder) Record(c Capture) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures = append(f.captures, c)
}

func (f *fakeRecorder) all() []Capture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Capture(nil), f.captures...)
}

// settle gives background effect goroutines a moment to finish.
func settle() { time.Sleep(30 * time.Millisecond) }

func TestMachine_ActivationAnnouncesAndLocks(t *testing.T) {
	speaker := &fakeSpeaker{}
	pulser := &fakePulser{}
	m := NewMachine(Config{
		TriggerDelay: time.Hour, // keep the trigger out of this test
		Speaker:      speaker,
		Pulser:       pulser,
	})

	m.HandleGesture(gesture.OpenPalm)
	settle()

	s := m.State()
	if s.Mode != ModeEnvironment || !s.Locked {
		t.Fatalf("state = %+v, want locked environment", s)
	}
	spoken := speaker.all()
	if len(spoken) != 1 || spoken[0].text != "Environment activated and locked" {
		t.Errorf("spoken = %v", spoken)
	}
	if pulses := pulser.all(); len(pulses) != 1 || pulses[0] != haptic.Medium {
		t.Errorf("pulses = %v, want one medium", pulses)
	}
}

func TestMachine_DeferredTriggerRunsAnalysis(t *testing.T) {
	speaker := &fakeSpeaker{}
	analyzer := newFakeAnalyzer("a kitchen with a kettle on the counter", nil)
	recorder := &fakeRecorder{}
	m := NewMachine(Config{
		TriggerDelay: 10 * time.Millisecond,
		Speaker:      speaker,
		Analyzer:     analyzer,
		Recorder:     recorder,
	})

	m.HandleGesture(gesture.OpenPalm)

	if !analyzer.wait(t, time.Second) {
		t.Fatal("deferred trigger never fired")
	}
	settle()

	if s := m.State(); s.Processing {
		t.Error("processing flag still set after analysis completed")
	}
	if s := m.State(); s.Mode != ModeEnvironment || !s.Locked {
		t.Errorf("state = %+v, want session still locked in environment", s)
	}

	last, ok := speaker.last()
	if !ok || last.text != "a kitchen with a kettle on the counter" {
		t.Errorf("last spoken = %+v, want the description", last)
	}
	if !last.premium {
		t.Error("scene description must use the premium voice")
	}

	captures := recorder.all()
	if len(captures) != 1 {
		t.Fatalf("got %d captures, want 1", len(captures))
	}
	c := captures[0]
	if c.Mode != ModeEnvironment || c.Source != SourceAuto || c.Err != nil {
		t.Errorf("capture = %+v", c)
	}
}

func TestMachine_FistBeforeDelayCancelsTrigger(t *testing.T) {
	analyzer := newFakeAnalyzer("should never be spoken", nil)
	m := NewMachine(Config{
		TriggerDelay: 60 * time.Millisecond,
		Analyzer:     analyzer,
	})

	m.HandleGesture(gesture.OpenPalm)
	m.HandleGesture(gesture.Fist)

	if analyzer.wait(t, 200*time.Millisecond) {
		t.Fatal("stale trigger still ran the analysis")
	}
	if s := m.State(); s.Mode != ModeIdle || s.Processing {
		t.Errorf("state = %+v, want clean idle", s)
	}
}

func TestMachine_ReactivationOutrunsStaleTrigger(t *testing.T) {
	// Activate, reset, and re-activate within the first trigger's delay.
	// Only the second activation's trigger may run, and it must analyze
	// the second mode.
	analyzer := newFakeAnalyzer("text on a letter", nil)
	m := NewMachine(Config{
		TriggerDelay: 50 * time.Millisecond,
		Analyzer:     analyzer,
	})

	m.HandleGesture(gesture.OpenPalm)
	m.HandleGesture(gesture.Fist)
	m.HandleGesture(gesture.PeaceSign)

	if !analyzer.wait(t, time.Second) {
		t.Fatal("second activation's trigger never fired")
	}
	// Allow the stale first trigger's window to pass too.
	time.Sleep(100 * time.Millisecond)

	analyzer.mu.Lock()
	calls := append([]Mode(nil), analyzer.calls...)
	analyzer.mu.Unlock()
	if len(calls) != 1 || calls[0] != ModeCommunication {
		t.Errorf("analyzer calls = %v, want exactly [communication]", calls)
	}
}

func TestMachine_AnalysisFailureClearsProcessing(t *testing.T) {
	speaker := &fakeSpeaker{}
	analyzer := newFakeAnalyzer("", errors.New("api unreachable"))
	recorder := &fakeRecorder{}
	m := NewMachine(Config{
		TriggerDelay: 10 * time.Millisecond,
		Speaker:      speaker,
		Analyzer:     analyzer,
		Recorder:     recorder,
	})

	m.HandleGesture(gesture.PeaceSign)
	if !analyzer.wait(t, time.Second) {
		t.Fatal("trigger never fired")
	}
	settle()

	if s := m.State(); s.Processing {
		t.Error("processing flag still set after a failed analysis")
	}
	last, _ := speaker.last()
	if last.text != "Sorry, the scene analysis failed" {
		t.Errorf("last spoken = %q, want the failure apology", last.text)
	}
	captures := recorder.all()
	if len(captures) != 1 || captures[0].Err == nil {
		t.Errorf("captures = %+v, want one failed record", captures)
	}
}

func TestMachine_ResetDuringAnalysisMutesResult(t *testing.T) {
	speaker := &fakeSpeaker{}
	analyzer := newFakeAnalyzer("a sunlit kitchen", nil)
	analyzer.analyzing = make(chan struct{})
	recorder := &fakeRecorder{}
	m := NewMachine(Config{
		TriggerDelay: 10 * time.Millisecond,
		Speaker:      speaker,
		Analyzer:     analyzer,
		Recorder:     recorder,
	})

	m.HandleGesture(gesture.OpenPalm)
	if !analyzer.wait(t, time.Second) {
		t.Fatal("trigger never fired")
	}

	// Fist-reset while the analyzer is still running, then let it finish.
	// The description belongs to the abandoned session and must not be
	// spoken; the transcript still gets the record.
	m.HandleGesture(gesture.Fist)
	close(analyzer.analyzing)
	settle()

	if s := m.State(); s.Mode != ModeIdle || s.Processing {
		t.Errorf("state = %+v, want clean idle", s)
	}
	for _, sp := range speaker.all() {
		if sp.text == "a sunlit kitchen" {
			t.Fatal("stale description was spoken after the reset")
		}
	}
	if captures := recorder.all(); len(captures) != 1 || captures[0].Err != nil {
		t.Errorf("captures = %+v, want one completed record", captures)
	}
}

func TestMachine_ManualCapture(t *testing.T) {
	t.Run("rejected while idle", func(t *testing.T) {
		m := NewMachine(Config{TriggerDelay: time.Hour})
		if err := m.ManualCapture(); !errors.Is(err, ErrIdle) {
			t.Errorf("err = %v, want ErrIdle", err)
		}
	})

	t.Run("runs immediately in an active mode", func(t *testing.T) {
		analyzer := newFakeAnalyzer("a doorway ahead", nil)
		recorder := &fakeRecorder{}
		m := NewMachine(Config{
			TriggerDelay: time.Hour,
			Analyzer:     analyzer,
			Recorder:     recorder,
		})

		m.HandleGesture(gesture.OpenPalm)
		if err := m.ManualCapture(); err != nil {
			t.Fatalf("ManualCapture() = %v", err)
		}
		if !analyzer.wait(t, time.Second) {
			t.Fatal("manual capture never reached the analyzer")
		}
		settle()

		captures := recorder.all()
		if len(captures) != 1 || captures[0].Source != SourceManual {
			t.Errorf("captures = %+v, want one manual record", captures)
		}
	})

	t.Run("rejected while an analysis is in flight", func(t *testing.T) {
		m := NewMachine(Config{TriggerDelay: time.Hour})
		m.HandleGesture(gesture.OpenPalm)

		// Force the processing flag as a deferred trigger would.
		m.mu.Lock()
		m.state.Processing = true
		m.mu.Unlock()

		if err := m.ManualCapture(); !errors.Is(err, ErrBusy) {
			t.Errorf("err = %v, want ErrBusy", err)
		}
	})
}

func TestMachine_StartNavigation(t *testing.T) {
	t.Run("locks into navigation and speaks the first step", func(t *testing.T) {
		speaker := &fakeSpeaker{}
		nav := &fakeNavigator{first: "Head north on Main Street for 200 meters"}
		m := NewMachine(Config{TriggerDelay: time.Hour, Speaker: speaker, Navigator: nav})

		if err := m.StartNavigation(context.Background(), "pharmacy"); err != nil {
			t.Fatalf("StartNavigation() = %v", err)
		}
		if s := m.State(); s.Mode != ModeNavigation || !s.Locked {
			t.Errorf("state = %+v, want locked navigation", s)
		}

		spoken := speaker.all()
		if len(spoken) != 2 {
			t.Fatalf("spoken = %v, want announcement then first step", spoken)
		}
		if spoken[0].text != "Navigation started" || spoken[1].text != nav.first {
			t.Errorf("spoken = %v", spoken)
		}
	})

	t.Run("rejected while locked", func(t *testing.T) {
		nav := &fakeNavigator{first: "go"}
		m := NewMachine(Config{TriggerDelay: time.Hour, Navigator: nav})
		m.HandleGesture(gesture.OpenPalm)

		if err := m.StartNavigation(context.Background(), "pharmacy"); !errors.Is(err, ErrLocked) {
			t.Errorf("err = %v, want ErrLocked", err)
		}
	})

	t.Run("route failure apologises and stays idle", func(t *testing.T) {
		speaker := &fakeSpeaker{}
		navErr := errors.New("no route found")
		nav := &fakeNavigator{err: navErr}
		m := NewMachine(Config{TriggerDelay: time.Hour, Speaker: speaker, Navigator: nav})

		if err := m.StartNavigation(context.Background(), "nowhere"); !errors.Is(err, navErr) {
			t.Errorf("err = %v, want the navigator error", err)
		}
		if s := m.State(); s.Mode != ModeIdle {
			t.Errorf("state = %+v, want idle", s)
		}
		last, _ := speaker.last()
		if last.text != "Sorry, I couldn't start navigation" {
			t.Errorf("last spoken = %q", last.text)
		}
	})

	t.Run("abandons the route if the session locked meanwhile", func(t *testing.T) {
		nav := &fakeNavigator{first: "go", starting: make(chan struct{})}
		m := NewMachine(Config{TriggerDelay: time.Hour, Navigator: nav})

		errCh := make(chan error, 1)
		go func() { errCh <- m.StartNavigation(context.Background(), "pharmacy") }()

		// Lock the session while the route lookup is still in flight.
		settle()
		m.HandleGesture(gesture.OpenPalm)
		close(nav.starting)

		if err := <-errCh; !errors.Is(err, ErrLocked) {
			t.Errorf("err = %v, want ErrLocked", err)
		}
		if nav.stopCount() != 1 {
			t.Errorf("navigator stops = %d, want 1 (abandoned route)", nav.stopCount())
		}
		if s := m.State(); s.Mode != ModeEnvironment {
			t.Errorf("state = %+v, want the gesture activation to stand", s)
		}
	})

	t.Run("concurrent starts let exactly one route win", func(t *testing.T) {
		speaker := &fakeSpeaker{}
		nav := &fakeNavigator{first: "Head north", starting: make(chan struct{})}
		m := NewMachine(Config{TriggerDelay: time.Hour, Speaker: speaker, Navigator: nav})

		errCh := make(chan error, 2)
		go func() { errCh <- m.StartNavigation(context.Background(), "pharmacy") }()
		go func() { errCh <- m.StartNavigation(context.Background(), "bakery") }()

		// Both calls must be past the entry check and inside the route
		// lookup before either completes.
		settle()
		close(nav.starting)

		var won, lost int
		for i := 0; i < 2; i++ {
			switch err := <-errCh; {
			case err == nil:
				won++
			case errors.Is(err, ErrLocked):
				lost++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if won != 1 || lost != 1 {
			t.Fatalf("won = %d, lost = %d, want exactly one of each", won, lost)
		}
		if s := m.State(); s.Mode != ModeNavigation || !s.Locked {
			t.Errorf("state = %+v, want locked navigation", s)
		}
		if nav.stopCount() != 0 {
			t.Errorf("navigator stops = %d, want 0 (the winning route must survive)", nav.stopCount())
		}
		var announced int
		for _, sp := range speaker.all() {
			if sp.text == "Navigation started" {
				announced++
			}
		}
		if announced != 1 {
			t.Errorf("%d navigation announcements, want 1", announced)
		}
	})

	t.Run("fist stops the navigator", func(t *testing.T) {
		nav := &fakeNavigator{first: "go"}
		m := NewMachine(Config{TriggerDelay: time.Hour, Navigator: nav})

		if err := m.StartNavigation(context.Background(), "pharmacy"); err != nil {
			t.Fatalf("StartNavigation() = %v", err)
		}
		m.HandleGesture(gesture.Fist)

		if nav.stopCount() != 1 {
			t.Errorf("navigator stops = %d, want 1", nav.stopCount())
		}
		if s := m.State(); s.Mode != ModeIdle {
			t.Errorf("state = %+v, want idle", s)
		}
	})
}

func TestMachine_OnTransition(t *testing.T) {
	var mu sync.Mutex
	var seen []State
	m := NewMachine(Config{
		TriggerDelay: time.Hour,
		OnTransition: func(s State) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		},
	})

	m.HandleGesture(gesture.Unknown) // no change, no callback
	m.HandleGesture(gesture.OpenPalm)
	m.HandleGesture(gesture.Fist)
	settle()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("got %d transitions, want 2: %+v", len(seen), seen)
	}
	if seen[0].Mode != ModeEnvironment || seen[1].Mode != ModeIdle {
		t.Errorf("transitions = %+v", seen)
	}
}
