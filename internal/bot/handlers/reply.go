package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"

	"github.com/orbie-bot/orbie/internal/text"
)

// commandArgs returns the words after the leading command, joined by single
// spaces. "/chat  hello   there" gives "hello there".
func commandArgs(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[1:], " ")
}

// commandName returns the command at the start of s without the slash and
// any @botname suffix. "/chat@OrbieBot hi" gives "chat". Text that does not
// start with a command gives "".
func commandName(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	name, _, _ := strings.Cut(fields[0][1:], "@")
	return name
}

// sendText sends msg to chatID, split to fit Telegram's length limit.
// Failures are logged; handlers have nobody to return them to.
func sendText(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, msg string) {
	chunks := text.Split(msg, text.MaxMessageLength)
	for i, chunk := range chunks {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: chunk}); err != nil {
			log.ErrorContext(ctx, "Failed to send message", "chat_id", chatID, "part", i+1, "parts", len(chunks), "error", err)
			return
		}
	}
}
