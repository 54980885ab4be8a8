package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/orbie-bot/orbie/internal/text"
)

// NewSearchHandler returns a handler for /search. It runs a web search and
// has the cloud backend summarize the results for the sender.
func NewSearchHandler(deps HandlerDeps) bot.HandlerFunc {
	return searchHandler{deps}.Handle
}

type searchHandler struct {
	deps HandlerDeps
}

func (h searchHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "search")
	cfg := h.deps.Config

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Search handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	query := commandArgs(msg.Text)
	if query == "" {
		sendText(ctx, b, log, chatID, cfg.Messages.SearchProvideQuery)
		return
	}

	if words := len(strings.Fields(query)); words > cfg.Search.TokenLimit {
		log.InfoContext(ctx, "Search query over word limit", "chat_id", chatID, "words", words, "limit", cfg.Search.TokenLimit)
		sendText(ctx, b, log, chatID, fmt.Sprintf(cfg.Messages.SearchLimitExceeded, cfg.Search.TokenLimit))
		return
	}

	log.InfoContext(ctx, "Handling /search command", "chat_id", chatID, "user_id", msg.From.ID)

	stopTyping := KeepTyping(ctx, b, chatID, cfg.Telegram.TypingInterval, log)
	answer, err := h.answer(ctx, msg.From.FirstName, query)
	stopTyping()

	if err != nil {
		log.ErrorContext(ctx, "Search failed", "chat_id", chatID, "error", err)
		sendText(ctx, b, log, chatID, cfg.Messages.SearchError)
		return
	}

	sendText(ctx, b, log, chatID, answer)
}

func (h searchHandler) answer(ctx context.Context, firstName, query string) (string, error) {
	summary, err := h.deps.Search.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}

	answer, err := h.deps.Cloud.Search(ctx, firstName+" asked for "+summary.String())
	if err != nil {
		return "", fmt.Errorf("summarize results: %w", err)
	}

	answer = text.Clean(answer)
	if answer == "" {
		return "", fmt.Errorf("summarize results: empty answer")
	}
	return answer, nil
}
