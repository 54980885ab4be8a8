package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/orbie-bot/orbie/internal/config"
)

// Gemini answers single-shot requests through the Google Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	searchModel string
	temperature float32
	prompts     PromptSource
	log         *slog.Logger
}

// NewGemini creates a Gemini client for cfg.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, apiKey string, prompts PromptSource, log *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized", "model", cfg.Model, "search_model", cfg.SearchModel)
	return &Gemini{
		client:      gi,
		model:       cfg.Model,
		searchModel: cfg.SearchModel,
		temperature: cfg.Temperature,
		prompts:     prompts,
		log:         logger,
	}, nil
}

// Chat sends message with the named prompt as system instruction.
func (g *Gemini) Chat(ctx context.Context, message, promptName string) (string, error) {
	system, err := g.prompts.Load(promptName)
	if err != nil {
		return "", err
	}
	cfg := g.contentConfig()
	cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	return g.generate(ctx, g.model, message, cfg)
}

// Search sends the search prompt and message as a single user turn.
func (g *Gemini) Search(ctx context.Context, message string) (string, error) {
	content, err := searchMessage(g.prompts, message)
	if err != nil {
		return "", err
	}
	return g.generate(ctx, g.searchModel, content, g.contentConfig())
}

func (g *Gemini) contentConfig() *genai.GenerateContentConfig {
	temp := g.temperature
	return &genai.GenerateContentConfig{Temperature: &temp}
}

func (g *Gemini) generate(ctx context.Context, model, text string, cfg *genai.GenerateContentConfig) (string, error) {
	g.log.DebugContext(ctx, "Requesting Gemini content", "model", model)

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Backend: "gemini", Code: apiErr.Code, Body: apiErr.Message}
		}
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}

	return extractText(resp)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
			return "", fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("gemini: response contained no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", errors.New("gemini: candidate has no content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini: candidate has no text")
	}
	return sb.String(), nil
}
