// Package tasks implements the scheduled jobs of the bot: the daily task
// digest and database maintenance.
package tasks

import (
	"context"
	"log/slog"

	"github.com/orbie-bot/orbie/internal/config"
	"github.com/orbie-bot/orbie/internal/database"
	"github.com/orbie-bot/orbie/internal/todo"
)

// TodoSource reads task lists and their open tasks.
type TodoSource interface {
	Lists(ctx context.Context) ([]todo.TaskList, error)
	Tasks(ctx context.Context, listID string) ([]todo.Task, error)
}

// Notifier delivers a message to a named authorized user.
type Notifier interface {
	SendToUser(ctx context.Context, name, msg string) error
}

// TaskDeps contains the dependencies shared by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Todo     TodoSource
	Notifier Notifier
}
