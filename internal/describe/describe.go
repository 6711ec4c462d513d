// Package describe performs cloud scene analysis: it sends the current
// camera frame and a mode-specific prompt to a vision model and returns a
// short description suitable for speech.
package describe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ayusman/drishti/internal/session"
)

// ErrEmptyResponse is returned when the model answers with no content.
var ErrEmptyResponse = errors.New("model returned no description")

// FrameSource supplies the most recent camera frame encoded as JPEG.
type FrameSource interface {
	CurrentJPEG() ([]byte, error)
}

// chatCompleter is the slice of the OpenAI client the analyzer needs,
// narrow so tests can substitute it.
type chatCompleter interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Config holds analyzer options.
type Config struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible endpoints
	Model   string // defaults to gpt-4o-mini
}

// Analyzer implements session.Analyzer against the OpenAI chat API.
type Analyzer struct {
	chat   chatCompleter
	frames FrameSource
	model  string
}

// New creates an Analyzer from the given config and frame source.
func New(cfg Config, frames FrameSource) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing API key")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	return &Analyzer{
		chat:   &client.Chat.Completions,
		frames: frames,
		model:  model,
	}, nil
}

// modePrompt returns the instruction and response budget for a mode.
// Environment keeps answers short; Communication reads text at length.
func modePrompt(mode session.Mode) (string, int64) {
	switch mode {
	case session.ModeCommunication:
		return "You are the eyes of a blind person. Read aloud any text, " +
			"signage, labels or documents visible in this photo, in reading " +
			"order. If there is no readable text, say so briefly.", 350
	default:
		return "You are the eyes of a blind person walking outdoors or " +
			"indoors. Describe the scene in this photo in two or three short " +
			"sentences. Mention obstacles and hazards first, then people, " +
			"then the general surroundings.", 140
	}
}

// Analyze grabs the current frame and asks the vision model to describe it
// for the given mode.
func (a *Analyzer) Analyze(ctx context.Context, mode session.Mode) (string, error) {
	jpeg, err := a.frames.CurrentJPEG()
	if err != nil {
		return "", fmt.Errorf("grab frame: %w", err)
	}

	prompt, maxTokens := modePrompt(mode)
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)

	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURI,
				}),
			}),
		},
		MaxTokens: openai.Int(maxTokens),
	}

	resp, err := a.chat.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}
