// Package openai implements speech-to-text transcription over the OpenAI
// audio API (or any compatible endpoint).
package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/dvolkov/taskdesk/internal/config"
)

// WhisperTranscriber transcribes audio payloads using the Whisper
// transcription endpoint.
type WhisperTranscriber struct {
	client   *openai.Client
	model    string
	language string
	logger   *slog.Logger
}

// NewWhisperTranscriber creates a transcriber from the speech configuration.
func NewWhisperTranscriber(logger *slog.Logger, cfg config.SpeechConfig) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("speech API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &WhisperTranscriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
		logger:   logger.With("component", "whisper_transcriber"),
	}, nil
}

// Transcribe converts an audio payload into text. The filename only hints the
// container format to the API; the payload itself is what gets transcribed.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: t.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	t.logger.InfoContext(ctx, "audio transcribed",
		"filename", filename,
		"text_length", len(resp.Text))
	return resp.Text, nil
}
