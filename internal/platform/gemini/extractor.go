package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"google.golang.org/genai"

	"github.com/dvolkov/taskdesk/internal/config"
	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/extraction"
)

// temperature keeps extraction output stable across identical inputs.
const temperature float32 = 0.3

// Extractor implements the extraction.Extractor interface using Google's
// Gemini API with a fixed, versioned instruction set.
type Extractor struct {
	logger  *slog.Logger
	client  *genai.Client
	model   string
	timeout time.Duration

	// failureCount tracks classification failures. Failed messages are
	// dropped rather than retried, so the counter is the only trace of an
	// outage at this layer.
	failureCount atomic.Int64
}

// Ensure Extractor implements extraction.Extractor
var _ extraction.Extractor = (*Extractor)(nil)

// NewExtractor creates a new Gemini-backed extractor.
func NewExtractor(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Extractor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", extraction.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", extraction.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", extraction.ErrInvalidConfig, err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Extractor{
		logger:  logger.With("component", "gemini_extractor", "prompt_version", promptVersion),
		client:  client,
		model:   cfg.ModelName,
		timeout: timeout,
	}, nil
}

// ExtractTask implements extraction.Extractor. It calls the model, validates
// the response against the strict candidate schema and applies the
// confidence gate. A nil, nil return means "not a task".
func (e *Extractor) ExtractTask(
	ctx context.Context,
	message string,
	msgCtx extraction.MessageContext,
) (*domain.TaskCandidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(temperature),
		SystemInstruction: genai.NewContentFromText(buildSystemPrompt(time.Now()), genai.RoleUser),
	}

	prompt := buildUserPrompt(message, msgCtx.SenderName, msgCtx.ChatName)

	resp, err := e.client.Models.GenerateContent(callCtx, e.model, genai.Text(prompt), cfg)
	if err != nil {
		e.failureCount.Add(1)
		e.logger.WarnContext(ctx, "classification call failed, dropping message",
			"error", err,
			"failure_count", e.failureCount.Load())
		return nil, fmt.Errorf("%w: %v", extraction.ErrClassificationFailed, err)
	}

	text := resp.Text()
	if text == "" {
		e.failureCount.Add(1)
		e.logger.WarnContext(ctx, "classifier returned empty response, dropping message",
			"failure_count", e.failureCount.Load())
		return nil, extraction.ErrInvalidResponse
	}

	candidate, err := ParseCandidate([]byte(text))
	if err != nil {
		e.failureCount.Add(1)
		e.logger.WarnContext(ctx, "classifier response failed schema validation, dropping message",
			"error", err,
			"failure_count", e.failureCount.Load())
		return nil, err
	}

	if !candidate.Accepted() {
		e.logger.DebugContext(ctx, "message is not a task or below confidence gate",
			"is_task", candidate.IsTask,
			"confidence", candidate.Confidence)
		return nil, nil
	}

	e.logger.InfoContext(ctx, "task candidate extracted",
		"title", candidate.Title,
		"priority", candidate.Priority,
		"confidence", candidate.Confidence)
	return candidate, nil
}

// FailureCount reports how many messages were dropped because classification
// failed, as opposed to being classified as "not a task".
func (e *Extractor) FailureCount() int64 {
	return e.failureCount.Load()
}
