package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/orbie-bot/orbie/internal/todo"
)

// newDigestTask fetches the Microsoft To Do lists and sends the digest to the
// configured recipient.
func newDigestTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_digest")
	cfg := deps.Config

	return func(ctx context.Context) error {
		startTime := time.Now()

		lists, err := deps.Todo.Lists(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Failed to fetch task lists", "error", err)
			return fmt.Errorf("fetch task lists: %w", err)
		}

		var tasks map[string][]todo.Task
		if cfg.Todo.IncludeTasks {
			tasks = make(map[string][]todo.Task, len(lists))
			for _, l := range lists {
				open, err := deps.Todo.Tasks(ctx, l.ID)
				if err != nil {
					log.ErrorContext(ctx, "Failed to fetch tasks", "list", l.DisplayName, "error", err)
					return fmt.Errorf("fetch tasks of %q: %w", l.DisplayName, err)
				}
				tasks[l.ID] = open
			}
		}

		digest := todo.FormatDigest(cfg.Messages.DigestHeader, lists, tasks)
		if err := deps.Notifier.SendToUser(ctx, cfg.Todo.Recipient, digest); err != nil {
			log.ErrorContext(ctx, "Failed to send digest", "recipient", cfg.Todo.Recipient, "error", err)
			return fmt.Errorf("send digest: %w", err)
		}

		log.InfoContext(ctx, "Digest sent", "lists", len(lists), "duration", time.Since(startTime))
		return nil
	}
}
