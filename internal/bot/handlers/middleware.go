// Package handlers contains the Telegram command handlers, the authorization
// middleware that gates them, and their registration table.
package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Authorized creates a middleware that lets through only messages whose
// sender is one of the configured authorized users. Everyone else gets the
// not-authorized reply and the wrapped handler is never called.
func Authorized(deps HandlerDeps) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			log := deps.Logger.With("middleware", "Authorized")

			msg := update.Message
			if msg == nil {
				log.DebugContext(ctx, "Ignoring update without message", "update_id", update.ID)
				return
			}

			if msg.From != nil && deps.Config.IsAuthorized(msg.From.ID) {
				next(ctx, b, update)
				return
			}

			var userID int64
			if msg.From != nil {
				userID = msg.From.ID
			}
			log.InfoContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", msg.Chat.ID)
			sendText(ctx, b, log, msg.Chat.ID, deps.Config.Messages.NotAuthorized)
		}
	}
}
