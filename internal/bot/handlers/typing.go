package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const defaultTypingInterval = 4 * time.Second

// ChatActionSender is the part of *bot.Bot used by KeepTyping.
type ChatActionSender interface {
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// KeepTyping shows the "typing" action in chatID, refreshing it every
// interval, until the returned stop function is called or ctx ends. Calling
// stop more than once is safe.
func KeepTyping(ctx context.Context, b ChatActionSender, chatID int64, interval time.Duration, log *slog.Logger) (stop func()) {
	if interval <= 0 {
		interval = defaultTypingInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	send := func() {
		_, err := b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})
		if err != nil && ctx.Err() == nil {
			log.DebugContext(ctx, "Typing action failed", "chat_id", chatID, "error", err)
		}
	}

	send()

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				send()
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
