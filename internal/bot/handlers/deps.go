package handlers

import (
	"log/slog"

	"github.com/orbie-bot/orbie/internal/config"
	"github.com/orbie-bot/orbie/internal/inference"
	"github.com/orbie-bot/orbie/internal/search"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Cloud  inference.Completer
	Local  inference.Streamer
	Search search.Searcher
}
