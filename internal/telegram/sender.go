package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/orbie-bot/orbie/internal/config"
	"github.com/orbie-bot/orbie/internal/text"
)

// ErrUnknownRecipient is returned by SendToUser for names that are not in
// the authorized users map.
var ErrUnknownRecipient = errors.New("unknown recipient")

// Sender pushes unsolicited messages, such as the daily digest, to chats.
type Sender struct {
	b       *bot.Bot
	cfg     *config.Config
	timeout time.Duration
	log     *slog.Logger
}

// NewSender creates a Sender that sends through b.
func NewSender(b *bot.Bot, cfg *config.Config, logger *slog.Logger) *Sender {
	return &Sender{
		b:       b,
		cfg:     cfg,
		timeout: cfg.Telegram.SendTimeout,
		log:     componentLogger(logger, "sender"),
	}
}

// SendToUser sends msg to the chat of the authorized user called name.
func (s *Sender) SendToUser(ctx context.Context, name, msg string) error {
	chatID, ok := s.cfg.ChatIDFor(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRecipient, name)
	}
	return s.SendToChat(ctx, chatID, msg)
}

// SendToChat sends msg to chatID, split into as many messages as the
// Telegram length limit requires.
func (s *Sender) SendToChat(ctx context.Context, chatID int64, msg string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	chunks := text.Split(msg, text.MaxMessageLength)
	for i, chunk := range chunks {
		if _, err := s.b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: chunk}); err != nil {
			s.log.ErrorContext(ctx, "Failed to send message", "chat_id", chatID, "part", i+1, "parts", len(chunks), "error", err)
			return fmt.Errorf("failed to send message to %d: %w", chatID, err)
		}
	}

	s.log.DebugContext(ctx, "Message sent", "chat_id", chatID, "parts", len(chunks))
	return nil
}
