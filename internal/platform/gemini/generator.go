package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/exercise-api/internal/config"
	"github.com/phrazzld/exercise-api/internal/generation"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"google.golang.org/genai"
)

//go:embed prompt.tmpl
var defaultPrompt string

// contentGenerator is the subset of *genai.Models used by the generator.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API.
type GeminiGenerator struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	models         contentGenerator
	sleep          func(ctx context.Context, d time.Duration) error
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a client for cfg.ModelName using cfg.GeminiAPIKey.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	return newGenerator(logger, cfg, client.Models)
}

func newGenerator(logger *slog.Logger, cfg config.LLMConfig, models contentGenerator) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	tmpl, err := template.New("exercises").Parse(defaultPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger:         logger.With(slog.String("component", "gemini_generator")),
		config:         cfg,
		promptTemplate: tmpl,
		models:         models,
		sleep:          sleepContext,
	}, nil
}

// Generate implements generation.Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, req generation.Request, emit generation.EmitFunc) error {
	log := logger.FromContextOrDefault(ctx, g.logger).With(
		slog.String("generation_id", req.GenerationID.String()))

	prompt, err := g.createPrompt(req)
	if err != nil {
		return err
	}
	log.Debug("prompt generated", slog.Int("prompt_length", len(prompt)))

	response, err := g.callWithRetry(ctx, log, prompt)
	if err != nil {
		return err
	}
	if len(response.Exercises) == 0 {
		return fmt.Errorf("%w: no exercises in response", generation.ErrInvalidResponse)
	}

	log.Info("parsed Gemini response", slog.Int("exercise_count", len(response.Exercises)))
	for i, draft := range response.Exercises {
		if err := draft.Validate(); err != nil {
			return fmt.Errorf("%w: exercise %d: %v", generation.ErrInvalidResponse, i+1, err)
		}
		if err := emit(draft); err != nil {
			if errors.Is(err, generation.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (g *GeminiGenerator) createPrompt(req generation.Request) (string, error) {
	data := promptData{
		Subject:       req.Subject,
		Grade:         req.Grade,
		Title:         req.Title,
		Count:         req.Count,
		Difficulty:    req.DifficultyLevel.Label(),
		QuestionTypes: req.QuestionTypes,
		SourceText:    req.SourceText,
	}

	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// callWithRetry calls the model with exponential backoff and jitter.
// Blocked or unparseable responses are permanent and returned immediately.
func (g *GeminiGenerator) callWithRetry(ctx context.Context, log *slog.Logger, prompt string) (*ResponseSchema, error) {
	maxRetries := max(g.config.MaxRetries, 0)
	baseDelay := max(g.config.RetryDelaySeconds, 1)

	for attempt := 0; ; attempt++ {
		log.Info("making Gemini API call",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries+1))

		resp, err := g.models.GenerateContent(ctx, g.config.ModelName, genai.Text(prompt),
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
		if err == nil {
			parsed, perr := parseResponse(resp)
			if perr != nil {
				log.Warn("permanent error from Gemini, not retrying", slog.String("error", perr.Error()))
			}
			return parsed, perr
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", generation.ErrTransientFailure, ctx.Err())
		}
		log.Error("Gemini API call failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		backoff := float64(baseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rand.Float64()*0.5) * float64(time.Second))
		if err := g.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %w", generation.ErrTransientFailure, err)
		}
	}
}

// parseResponse extracts the JSON document from the first candidate.
func parseResponse(resp *genai.GenerateContentResponse) (*ResponseSchema, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	raw := strings.TrimSpace(text.String())
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed ResponseSchema
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	return &parsed, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
