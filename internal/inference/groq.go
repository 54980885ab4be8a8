package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/orbie-bot/orbie/internal/config"
)

// Groq answers single-shot requests through an OpenAI-compatible chat
// completions API.
type Groq struct {
	client      openai.Client
	model       string
	searchModel string
	prompts     PromptSource
	log         *slog.Logger
}

// NewGroq creates a client for cfg. Retries are disabled so a failed call
// surfaces to the handler exactly once.
func NewGroq(cfg config.GroqConfig, apiKey string, prompts PromptSource, log *slog.Logger) *Groq {
	if log == nil {
		log = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithMaxRetries(0),
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Groq{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		searchModel: cfg.SearchModel,
		prompts:     prompts,
		log:         log.With("component", "groq_client"),
	}
}

// Chat sends a system turn built from promptName followed by message.
func (g *Groq) Chat(ctx context.Context, message, promptName string) (string, error) {
	system, err := g.prompts.Load(promptName)
	if err != nil {
		return "", err
	}
	return g.complete(ctx, g.model, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(message),
	})
}

// Search sends a single user turn made of the search prompt and message.
func (g *Groq) Search(ctx context.Context, message string) (string, error) {
	content, err := searchMessage(g.prompts, message)
	if err != nil {
		return "", err
	}
	return g.complete(ctx, g.searchModel, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(content),
	})
}

func (g *Groq) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	g.log.DebugContext(ctx, "Requesting completion", "model", model, "message_count", len(messages))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Backend: "groq", Code: apiErr.StatusCode, Body: apiErr.Message}
		}
		return "", fmt.Errorf("groq: request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("groq: response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
