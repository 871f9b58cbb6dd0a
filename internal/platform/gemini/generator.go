package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/guidelinehq/guideline-api/internal/config"
	"github.com/guidelinehq/guideline-api/internal/domain"
	"github.com/guidelinehq/guideline-api/internal/generation"
)

// Decoding bounds for the two pipeline stages. Temperature is kept low for
// near-deterministic output.
const (
	generationTemperature   float32 = 0.3
	summarizeMaxTokens      int32   = 500
	checklistMaxTokens      int32   = 800
	defaultRequestTimeout           = 60 * time.Second
)

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API to summarize guideline documents and derive
// actionable checklists.
type GeminiGenerator struct {
	logger  *slog.Logger
	client  *genai.Client
	model   string
	timeout time.Duration
}

// Ensure GeminiGenerator implements generation.Generator
var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a new GeminiGenerator with the provided
// dependencies. Returns an error if the logger is nil, the configuration is
// invalid, or the Gemini client cannot be created.
func NewGeminiGenerator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	timeout := defaultRequestTimeout
	if cfg.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger:  logger.With(slog.String("component", "gemini_generator")),
		client:  client,
		model:   cfg.ModelName,
		timeout: timeout,
	}, nil
}

// Summarize produces a concise summary of the guideline text.
func (g *GeminiGenerator) Summarize(ctx context.Context, guidelineText string) (string, error) {
	if strings.TrimSpace(guidelineText) == "" {
		return "", generation.ErrEmptyInput
	}

	g.logger.InfoContext(ctx, "summarizing guideline text",
		slog.Int("text_length", len(guidelineText)))

	text, err := g.generate(ctx, buildSummarizePrompt(guidelineText), summarizeMaxTokens)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// GenerateChecklist derives an ordered checklist from the summary. Parse
// failures on the provider response are absorbed by the fallback item and
// never surface as errors; only a failed remote call returns one.
func (g *GeminiGenerator) GenerateChecklist(
	ctx context.Context,
	summary string,
) (domain.Checklist, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, generation.ErrEmptyInput
	}

	g.logger.InfoContext(ctx, "generating checklist from summary",
		slog.Int("summary_length", len(summary)))

	text, err := g.generate(ctx, buildChecklistPrompt(summary), checklistMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate checklist: %w", err)
	}

	checklist := parseChecklist(text)
	g.logger.DebugContext(ctx, "checklist parsed",
		slog.Int("item_count", len(checklist)))
	return checklist, nil
}

// generate performs one bounded, low-randomness generation call against the
// configured model and returns the raw response text. All remote failures
// are normalized to generation.ErrGenerationFailed.
func (g *GeminiGenerator) generate(
	ctx context.Context,
	prompt string,
	maxTokens int32,
) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(
		callCtx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(generationTemperature),
			MaxOutputTokens: maxTokens,
		},
	)
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini API call failed",
			slog.String("model", g.model),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	text := resp.Text()
	if text == "" {
		g.logger.ErrorContext(ctx, "Gemini API returned no content",
			slog.String("model", g.model))
		return "", fmt.Errorf("%w: empty response from model", generation.ErrGenerationFailed)
	}

	return text, nil
}
