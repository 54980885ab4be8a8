package inference

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/orbie-bot/orbie/internal/config"
)

// NewCompleter selects the single-shot backend named by cfg.Cloud.Provider.
//
//nolint:ireturn // callers only depend on the Completer contract
func NewCompleter(ctx context.Context, cfg *config.Config, prompts PromptSource, log *slog.Logger) (Completer, error) {
	if log == nil {
		log = slog.Default()
	}
	log.Info("Initializing cloud inference client", "provider", cfg.Cloud.Provider)

	switch cfg.Cloud.Provider {
	case "groq":
		return NewGroq(cfg.Cloud.Groq, cfg.Secrets.GroqAPIKey, prompts, log), nil
	case "gemini":
		client, err := NewGemini(ctx, cfg.Cloud.Gemini, cfg.Secrets.GeminiAPIKey, prompts, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown cloud provider: %s", cfg.Cloud.Provider)
	}
}
