package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/api"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/auth"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/config"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/convert"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/database"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/drive"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/notify"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/parser"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/pdf"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/render"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/schedule"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting eml-to-pdf service", "addr", cfg.ListenAddr)

	// Connect to database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	batchLoc, err := time.LoadLocation(cfg.BatchTimezone)
	if err != nil {
		logger.Error("invalid batch timezone", "timezone", cfg.BatchTimezone, "error", err)
		os.Exit(1)
	}

	// Create components
	creds := auth.NewStore(auth.Config{
		TokenURL:     cfg.AuthBaseURL + "/token",
		AuthorizeURL: cfg.AuthBaseURL + "/authorize",
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scope:        cfg.Scope,
		AccessToken:  cfg.AccessToken,
		RefreshToken: cfg.RefreshToken,
		HTTPTimeout:  cfg.HTTPTimeout,
	}, logger)

	driveClient := drive.NewClient(cfg.GraphBaseURL, creds, cfg.HTTPTimeout, logger)
	folders := drive.NewFolderResolver(driveClient, batchLoc, logger)
	emlParser := parser.NewEMLParser(logger)
	renderer := render.NewRenderer(cfg.RenderTimeout, logger)
	composer := pdf.NewComposer()

	pipeline := convert.NewPipeline(driveClient, folders, emlParser, renderer, composer, db, logger)
	batch := convert.NewBatchOrchestrator(pipeline, driveClient, folders, cfg.Workers, logger)

	// Create Telegram notifier (optional)
	var notifier *notify.Notifier
	if cfg.TelegramEnabled() {
		notifier, err = notify.New(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Error("failed to create telegram notifier", "error", err)
			os.Exit(1)
		}
		logger.Info("telegram notifications enabled", "chat_id", cfg.TelegramChatID)
	}

	// Schedule the daily batch run
	scheduler, err := schedule.New(cfg.BatchSchedule, cfg.BatchTimezone, batch, notifier, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("batch scheduler started", "schedule", cfg.BatchSchedule, "timezone", cfg.BatchTimezone)

	handler := api.NewHandler(api.Deps{
		Config:   cfg,
		Creds:    creds,
		Drive:    driveClient,
		Pipeline: pipeline,
		Batch:    batch,
		History:  db,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // batch runs answer over this connection
	}

	// Setup graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("received shutdown signal", "signal", sig)
		logger.Info("shutting down...")

		scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server is running, press Ctrl+C to stop")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
