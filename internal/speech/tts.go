package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAITTS synthesizes speech through the OpenAI audio API. The premium
// flag switches to the HD model used for scene descriptions; short status
// announcements use the faster standard model.
type OpenAITTS struct {
	client openai.Client
	voice  openai.AudioSpeechNewParamsVoice
}

// TTSConfig holds synthesizer options.
type TTSConfig struct {
	APIKey  string
	BaseURL string
	Voice   string // defaults to "nova"
}

// NewOpenAITTS creates an OpenAI-backed synthesizer.
func NewOpenAITTS(cfg TTSConfig) (*OpenAITTS, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing API key")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	voice := openai.AudioSpeechNewParamsVoiceNova
	if cfg.Voice != "" {
		voice = openai.AudioSpeechNewParamsVoice(cfg.Voice)
	}

	return &OpenAITTS{
		client: openai.NewClient(opts...),
		voice:  voice,
	}, nil
}

// Synthesize converts text to MP3 audio.
func (t *OpenAITTS) Synthesize(ctx context.Context, text string, premium bool) ([]byte, error) {
	model := openai.SpeechModelTTS1
	if premium {
		model = openai.SpeechModelTTS1HD
	}

	resp, err := t.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          model,
		Voice:          t.voice,
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts audio: %w", err)
	}
	return audio, nil
}
