package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/orbie-bot/orbie/internal/text"
)

// NewChatHandler returns a handler for /chat that answers through the cloud
// backend using the chat prompt.
func NewChatHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps}.Handle
}

type chatHandler struct {
	deps HandlerDeps
}

func (h chatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "chat")
	cfg := h.deps.Config

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Chat handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	input := commandArgs(msg.Text)
	if input == "" {
		sendText(ctx, b, log, chatID, cfg.Messages.ChatProvideMessage)
		return
	}

	log.InfoContext(ctx, "Handling /chat command", "chat_id", chatID, "user_id", msg.From.ID, "length", len(input))

	stopTyping := KeepTyping(ctx, b, chatID, cfg.Telegram.TypingInterval, log)
	answer, err := h.deps.Cloud.Chat(ctx, input, cfg.Prompts.Chat)
	stopTyping()

	answer = text.Clean(answer)
	if err != nil || answer == "" {
		log.ErrorContext(ctx, "Chat completion failed", "chat_id", chatID, "error", err, "empty", answer == "")
		sendText(ctx, b, log, chatID, cfg.Messages.ChatError)
		return
	}

	sendText(ctx, b, log, chatID, answer)
}
