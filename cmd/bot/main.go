package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"video-cover-maker/internal/config"
	"video-cover-maker/internal/cover"
	"video-cover-maker/internal/handlers"
	"video-cover-maker/internal/httpclient"
	"video-cover-maker/internal/mediagroup"
	"video-cover-maker/internal/provider"
	"video-cover-maker/internal/provider/gemini"
	"video-cover-maker/internal/provider/taskqueue"
	"video-cover-maker/internal/session"
	"video-cover-maker/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.TelegramToken == "" {
		panic("TELEGRAM_BOT_TOKEN is required")
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	creds := provider.NewResolver(cfg.ActiveProvider, map[string]string{
		provider.Direct: cfg.GeminiAPIKey,
		provider.Queue:  cfg.QueueAPIKey,
	})

	svc := cover.NewService(cover.Options{
		Generators: map[string]cover.Generator{
			provider.Direct: gemini.New(gemini.Options{
				BaseURL:    cfg.GeminiBaseURL,
				APIVersion: cfg.GeminiAPIVersion,
				Model:      cfg.GeminiModel,
				HTTPClient: httpClient,
				Logger:     logger,
			}),
			provider.Queue: taskqueue.New(taskqueue.Options{
				BaseURL:         cfg.QueueBaseURL,
				Model:           cfg.QueueModel,
				HTTPClient:      httpClient,
				Logger:          logger,
				PollInterval:    cfg.PollInterval,
				MaxPollAttempts: cfg.MaxPollAttempts,
				ImageProxyURL:   cfg.ImageProxyURL,
			}),
		},
		Credentials: creds,
		History:     cover.NewHistory(),
		Logger:      logger,
		Resolution:  cfg.Resolution,
		PaceDelay:   cfg.PaceDelay,
	})

	handler := handlers.New(handlers.Options{
		Telegram:    tg,
		Service:     svc,
		Drafts:      session.NewStore(),
		Credentials: creds,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onAlbumFlush := func(album mediagroup.Album) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleAlbum(reqCtx, album)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onAlbumFlush,
	})
	handler.SetAlbumAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username(), "provider", creds.Active())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
