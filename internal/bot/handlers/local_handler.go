package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/orbie-bot/orbie/internal/text"
)

// NewLocalHandler returns a handler for /local that streams the answer of the
// local model into a single message, editing it as fragments arrive.
func NewLocalHandler(deps HandlerDeps) bot.HandlerFunc {
	return localHandler{deps}.Handle
}

type localHandler struct {
	deps HandlerDeps
}

func (h localHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "local")
	cfg := h.deps.Config

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Local handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	input := commandArgs(msg.Text)
	if input == "" {
		sendText(ctx, b, log, chatID, cfg.Messages.ChatProvideMessage)
		return
	}

	log.InfoContext(ctx, "Handling /local command", "chat_id", chatID, "user_id", msg.From.ID)

	placeholder, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: cfg.Messages.StreamPlaceholder})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send placeholder message", "chat_id", chatID, "error", err)
		return
	}

	w := &streamWriter{
		b:         b,
		log:       log,
		chatID:    chatID,
		messageID: placeholder.ID,
		shown:     cfg.Messages.StreamPlaceholder,
	}

	stopTyping := KeepTyping(ctx, b, chatID, cfg.Telegram.TypingInterval, log)
	defer stopTyping()

	lastEdit := time.Now()
	fragments := 0
	for f := range h.deps.Local.Stream(ctx, input, cfg.Prompts.Local) {
		if f.Err != nil {
			log.ErrorContext(ctx, "Local stream failed", "chat_id", chatID, "fragments", fragments, "error", f.Err)
			if w.buf.Len() > 0 {
				w.buf.WriteString("\n\n")
			}
		}
		w.buf.WriteString(f.Text)
		fragments++

		if time.Since(lastEdit) >= cfg.Stream.EditInterval {
			w.flush(ctx)
			lastEdit = time.Now()
		}
	}

	if strings.TrimSpace(w.buf.String()) == "" {
		w.buf.Reset()
		w.buf.WriteString(cfg.Messages.StreamEmpty)
	}
	w.flush(ctx)

	log.DebugContext(ctx, "Local stream finished", "chat_id", chatID, "fragments", fragments)
}

// streamWriter mirrors a growing text into Telegram messages. The tail of the
// text lives in the message being edited; once it outgrows the length limit
// the full part is frozen and the rest continues in a new message.
type streamWriter struct {
	b         *bot.Bot
	log       *slog.Logger
	chatID    int64
	messageID int
	shown     string
	buf       strings.Builder
	failed    bool
}

func (w *streamWriter) flush(ctx context.Context) {
	if w.failed {
		return
	}

	chunks := text.Split(w.buf.String(), text.MaxMessageLength)
	for len(chunks) > 1 {
		w.edit(ctx, chunks[0])

		sent, err := w.b.SendMessage(ctx, &bot.SendMessageParams{ChatID: w.chatID, Text: chunks[1]})
		if err != nil {
			w.log.ErrorContext(ctx, "Failed to send continuation message", "chat_id", w.chatID, "error", err)
			w.failed = true
			return
		}
		w.messageID = sent.ID
		w.shown = chunks[1]

		chunks = chunks[1:]
		w.buf.Reset()
		w.buf.WriteString(strings.Join(chunks, ""))
	}

	if len(chunks) == 1 {
		w.edit(ctx, chunks[0])
	}
}

func (w *streamWriter) edit(ctx context.Context, s string) {
	if s == w.shown || strings.TrimSpace(s) == "" {
		return
	}

	_, err := w.b.EditMessageText(ctx, &bot.EditMessageTextParams{ChatID: w.chatID, MessageID: w.messageID, Text: s})
	if err != nil {
		w.log.WarnContext(ctx, "Failed to edit streamed message", "chat_id", w.chatID, "message_id", w.messageID, "error", err)
		return
	}
	w.shown = s
}
