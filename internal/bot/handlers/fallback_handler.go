package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewFallbackHandler returns the handler for messages that match no command.
// It is gated like the commands.
func NewFallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return Authorized(deps)(fallbackHandler{deps}.Handle)
}

type fallbackHandler struct {
	deps HandlerDeps
}

func (h fallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "fallback")

	if update.Message == nil {
		return
	}

	log.DebugContext(ctx, "No command matched", "chat_id", update.Message.Chat.ID)
	sendText(ctx, b, log, update.Message.Chat.ID, h.deps.Config.Messages.Fallback)
}
