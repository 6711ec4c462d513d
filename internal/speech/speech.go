// Package speech turns announcements and scene descriptions into audio.
// Utterances are fire-and-forget and serialized: starting a new one
// interrupts whatever is still playing, so the user always hears the most
// recent state of the world.
package speech

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"sync"
)

// Synthesizer converts text to encoded audio. The premium flag selects the
// higher-quality voice used for scene descriptions.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, premium bool) ([]byte, error)
}

// Speaker synthesizes and plays utterances through a local audio player
// subprocess. It implements the session machine's Speaker contract.
type Speaker struct {
	synth  Synthesizer
	player player

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSpeaker creates a Speaker. It fails when no supported audio player is
// installed.
func NewSpeaker(synth Synthesizer) (*Speaker, error) {
	p, err := findPlayer()
	if err != nil {
		return nil, err
	}
	return &Speaker{synth: synth, player: p}, nil
}

// Speak queues text for playback, cancelling any utterance in progress.
// It returns immediately; synthesis and playback run in the background.
func (s *Speaker) Speak(text string, premium bool) {
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx, text, premium)
}

// Close stops any in-progress utterance.
func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Speaker) run(ctx context.Context, text string, premium bool) {
	audio, err := s.synth.Synthesize(ctx, text, premium)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("speech synthesis failed: %v", err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	if err := s.player.play(ctx, audio); err != nil && ctx.Err() == nil {
		log.Printf("audio playback failed: %v", err)
	}
}

// player runs one audio clip through an external binary.
type player struct {
	path      string
	stdinArgs []string // args when the clip is piped on stdin; nil means temp file
	fileArgs  []string
}

// findPlayer locates a usable audio player. ffplay and mpv accept the clip
// on stdin; afplay (macOS) needs a file on disk.
func findPlayer() (player, error) {
	candidates := []player{
		{path: "ffplay", stdinArgs: []string{"-autoexit", "-nodisp", "-loglevel", "quiet", "-i", "-"}},
		{path: "mpv", stdinArgs: []string{"--no-video", "--really-quiet", "-"}},
		{path: "afplay", fileArgs: []string{}},
	}

	for _, c := range candidates {
		if resolved, err := exec.LookPath(c.path); err == nil {
			c.path = resolved
			return c, nil
		}
	}
	return player{}, errors.New("no audio player found (need ffplay, mpv or afplay)")
}

func (p player) play(ctx context.Context, audio []byte) error {
	if p.stdinArgs != nil {
		cmd := exec.CommandContext(ctx, p.path, p.stdinArgs...)
		cmd.Stdin = bytes.NewReader(audio)
		return cmd.Run()
	}

	tmp, err := os.CreateTemp("", "drishti-*.mp3")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, p.path, append(p.fileArgs, tmp.Name())...)
	return cmd.Run()
}

// Logger is a Speaker substitute that writes utterances to the process
// log, used when TTS is not configured.
type Logger struct{}

// Speak logs the utterance.
func (Logger) Speak(text string, premium bool) {
	log.Printf("speak (premium=%t): %s", premium, text)
}
