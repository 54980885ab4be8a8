// Package telegram connects Orbie to the Telegram Bot API: it builds the
// client, installs the command table and pushes unsolicited messages.
package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-telegram/bot"

	"github.com/orbie-bot/orbie/internal/bot/handlers"
)

var errNoToken = errors.New("telegram: bot token is empty")

// NewTelegramBot builds a client for token. opts are handed to go-telegram
// unchanged, so callers choose polling, server URL and default handler.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, errNoToken
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram: new client: %w", err)
	}

	componentLogger(logger, "telegram").Debug("Telegram client ready", "options", len(opts))
	return b, nil
}

// applyMiddleware composes mw around handler; mw[0] sees the update first.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers installs the command table on b in name order. Entries
// with a Match function are routed by it; the rest use their pattern and
// match type. Entries without a handler are skipped.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, table map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return errors.New("telegram: cannot install commands on a nil client")
	}
	log := componentLogger(logger, "commands")

	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	installed := 0
	for _, name := range names {
		h := table[name]
		if h.Handler == nil {
			log.Warn("Command has no handler, skipping", "command", name)
			continue
		}

		handler := applyMiddleware(h.Handler, h.Middleware)
		if h.Match != nil {
			b.RegisterHandlerMatchFunc(h.Match, handler)
		} else {
			b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, handler)
		}
		installed++
		log.Debug("Command installed", "command", name, "custom_match", h.Match != nil, "middleware", len(h.Middleware))
	}

	log.Info("Command table installed", "installed", installed, "skipped", len(table)-installed)
	return nil
}

func componentLogger(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}
