package handlers

import (
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegisteredHandler carries everything needed to register one command. When
// Match is set it decides which updates reach the handler and HandlerType,
// Pattern and MatchType are informational.
type RegisteredHandler struct {
	HandlerType bot.HandlerType
	Pattern     string
	Handler     bot.HandlerFunc
	Middleware  []bot.Middleware
	MatchType   bot.MatchType
	Match       bot.MatchFunc
}

// RegisterAllCommands returns the command table keyed by command name.
// Every command except /help requires an authorized sender.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	gated := []bot.Middleware{Authorized(deps)}

	command := func(pattern string, h bot.HandlerFunc, mw []bot.Middleware) RegisteredHandler {
		return RegisteredHandler{
			HandlerType: bot.HandlerTypeMessageText,
			Pattern:     pattern,
			Handler:     h,
			Middleware:  mw,
			MatchType:   bot.MatchTypeCommandStartOnly,
			Match:       matchCommand(pattern),
		}
	}

	return map[string]RegisteredHandler{
		"/start":  command("start", NewStartHandler(deps), gated),
		"/help":   command("help", NewHelpHandler(deps), nil),
		"/chat":   command("chat", NewChatHandler(deps), gated),
		"/search": command("search", NewSearchHandler(deps), gated),
		"/local":  command("local", NewLocalHandler(deps), gated),
	}
}

// matchCommand matches messages starting with /name, with or without the
// @botname suffix Telegram adds in group chats.
func matchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		return commandName(update.Message.Text) == name
	}
}
