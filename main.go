// Package main implements a Cloud Run service that serves a birthday
// countdown webpage and sends Telegram notifications when a new day unlocks.
package main

import (
	"context"
	"embed"
	"log/slog"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"

	"countdown-notifier/bot"
	"countdown-notifier/dispatch"
	"countdown-notifier/pkg/countdown"
	"countdown-notifier/server"
	"countdown-notifier/storage"
	"countdown-notifier/telegram"
)

//go:embed media/*
var mediaFS embed.FS

func main() {
	ctx := context.Background()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Check for local development mode
	localStorage := os.Getenv("LOCAL_STORAGE")
	bucket := os.Getenv("STORAGE_BUCKET")
	baseURL := os.Getenv("BASE_URL")

	// Default to local development mode if no bucket specified
	if bucket == "" && localStorage == "" {
		localStorage = "./data"
		logger.Info("No STORAGE_BUCKET set, defaulting to local development mode", "storage_path", localStorage)
	}

	var storageClient *gcs.Client
	if localStorage != "" {
		logger.Info("Running in local development mode", "storage_path", localStorage)
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}

		if err := os.MkdirAll(localStorage, 0o755); err != nil {
			logger.Error("Failed to create local storage directory", "error", err)
			os.Exit(1)
		}
	} else {
		if baseURL == "" {
			logger.Error("BASE_URL environment variable required (e.g., https://your-service.run.app)")
			os.Exit(1)
		}

		var err error
		storageClient, err = gcs.NewClient(ctx)
		if err != nil {
			logger.Error("Failed to initialize Storage client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}()
	}

	// Mock Telegram unless a bot token is provided
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	mockTelegram := token == "" || os.Getenv("TEST_MODE") == "1"
	if mockTelegram {
		if token == "" && localStorage == "" && os.Getenv("TEST_MODE") != "1" {
			logger.Error("TELEGRAM_BOT_TOKEN environment variable required")
			os.Exit(1)
		}
		logger.Info("Mock Telegram mode enabled")
	}

	cfg := countdown.DefaultConfig()
	if os.Getenv("START_MODE") == "first_visit" {
		cfg.StartMode = countdown.StartFirstVisit
	}

	store := storage.New(storageClient, bucket, localStorage, logger)
	mediaStore := storage.NewMediaStore(storageClient, bucket, localStorage, logger)

	var provider telegram.Provider
	var client *telegram.Client
	if mockTelegram {
		provider = telegram.NewMockProvider(logger)
	} else {
		client = telegram.New(token, "", logger)
		provider = client
	}

	dispatcher := dispatch.New(&dispatch.Config{
		Store:       store,
		Sender:      provider,
		Logger:      logger,
		IsPermanent: telegram.IsPermanent,
		BaseURL:     baseURL,
		Countdown:   cfg,
	})

	// The bot command loop needs the real API for long polling; in mock mode
	// there is nothing to poll.
	if client != nil {
		commandBot := bot.New(&bot.Config{
			API:                 client,
			Store:               store,
			Logger:              logger,
			IsAlreadySubscribed: storage.IsAlreadySubscribed,
			IsNotFound:          storage.IsNotFound,
			AdminChatIDs:        strings.Split(os.Getenv("ADMIN_CHAT_IDS"), ","),
			BaseURL:             baseURL,
			Countdown:           cfg,
		})
		go func() {
			if err := commandBot.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Bot update loop exited", "error", err)
			}
		}()
	}

	go runScheduler(ctx, dispatcher, logger)

	srv := server.New(&server.Config{
		Media:        mediaStore,
		Notifier:     dispatcher,
		Logger:       logger,
		IsNoOverride: storage.IsNoOverride,
		BaseURL:      baseURL,
		AdminToken:   os.Getenv("ADMIN_TOKEN"),
		Countdown:    cfg,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := srv.ServeHTTP(mediaFS, port); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// runScheduler fires the notification batch at the configured wall-clock time
// each day. The first fire waits until the next occurrence of NOTIFY_TIME;
// after that it ticks every 24 hours.
func runScheduler(ctx context.Context, dispatcher *dispatch.Dispatcher, logger *slog.Logger) {
	notifyAt := os.Getenv("NOTIFY_TIME")
	if notifyAt == "" {
		notifyAt = "09:00"
	}
	at, err := time.Parse("15:04", notifyAt)
	if err != nil {
		logger.Error("Invalid NOTIFY_TIME, expected HH:MM", "value", notifyAt, "error", err)
		at, _ = time.Parse("15:04", "09:00")
	}

	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	logger.Info("Notification scheduler started", "first_fire", next.Format(time.RFC3339))

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification scheduler stopped", "error", ctx.Err())
			return
		case <-timer.C:
		}

		fireTime := time.Now()
		if err := dispatcher.Run(ctx, fireTime); err != nil && ctx.Err() == nil {
			logger.Error("Scheduled notification batch failed", "error", err)
		}

		next = next.AddDate(0, 0, 1)
		timer.Reset(time.Until(next))
	}
}
