// Package main contains the entrypoint for the Orbie Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/orbie-bot/orbie/internal/bot"
	"github.com/orbie-bot/orbie/internal/bot/handlers"
	"github.com/orbie-bot/orbie/internal/bot/tasks"
	"github.com/orbie-bot/orbie/internal/config"
	"github.com/orbie-bot/orbie/internal/database"
	"github.com/orbie-bot/orbie/internal/inference"
	"github.com/orbie-bot/orbie/internal/logger"
	"github.com/orbie-bot/orbie/internal/prompt"
	"github.com/orbie-bot/orbie/internal/search"
	"github.com/orbie-bot/orbie/internal/telegram"
	"github.com/orbie-bot/orbie/internal/todo"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run builds every component, blocks until ctx is cancelled or the bot fails,
// and returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	secretsPath := flag.String("secrets", "./secrets.json", "Path to secrets file")
	flag.Parse()

	cfg, err := config.Load(*configPath, *secretsPath)
	if err != nil {
		slog.Error("Failed to load configuration", "config", *configPath, "secrets", *secretsPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.Close(db)
	store := database.NewStore(db, log)

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	err = store.Ping(pingCtx)
	cancelPing()
	if err != nil {
		log.Error("Token database is not reachable", "path", cfg.Database.Path, "error", err)
		return 1
	}

	prompts := prompt.NewLoader(cfg.Prompts.Dir)

	cloud, err := inference.NewCompleter(ctx, cfg, prompts, log)
	if err != nil {
		log.Error("Failed to initialize cloud inference", "provider", cfg.Cloud.Provider, "error", err)
		return 1
	}

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Cloud:  cloud,
		Local:  inference.NewOllama(cfg.Ollama, prompts, log),
		Search: search.NewSearXNG(cfg.Search, log),
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewFallbackHandler(hDeps)),
		tgbot.WithHTTPClient(cfg.Telegram.PollTimeout, &http.Client{Timeout: cfg.Telegram.PollTimeout + 10*time.Second}),
	}
	if cfg.Telegram.ServerURL != "" {
		botOpts = append(botOpts, tgbot.WithServerURL(cfg.Telegram.ServerURL))
	}
	tg, err := telegram.NewTelegramBot(cfg.Secrets.TelegramBotToken, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sender := telegram.NewSender(tg, cfg, log)
	auth := todo.NewAuthenticator(cfg.Todo, store, func(ctx context.Context, uri, code string) error {
		return sender.SendToUser(ctx, cfg.Todo.Recipient, fmt.Sprintf(cfg.Messages.DigestLogin, uri, code))
	}, log)

	tDeps := tasks.TaskDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Todo:     todo.NewClient(cfg.Todo.GraphURL, auth, log),
		Notifier: sender,
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, tg, sched)

	log.Info("Starting bot")
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Bot stopped gracefully")
	return 0
}
