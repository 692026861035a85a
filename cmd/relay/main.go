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

	"github.com/joho/godotenv"

	"pitchdojo/internal/config"
	"pitchdojo/internal/feedback"
	"pitchdojo/internal/providers/geminilive"
	"pitchdojo/internal/relay"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("relay exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := geminilive.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.LiveModel, logger)
	if err != nil {
		return err
	}
	generator, err := feedback.NewGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.FeedbackModel, logger)
	if err != nil {
		return err
	}

	server := relay.NewServer(provider, generator, logger, relay.Config{
		SessionMaxDuration: cfg.Relay.SessionMaxDuration,
		WarningBefore:      cfg.Relay.WarningBefore,
		PerIPPerHour:       cfg.Relay.PerIPPerHour,
		DailyMax:           cfg.Relay.DailyMax,
	})

	httpServer := &http.Server{
		Addr:              cfg.Relay.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("relay listening", "addr", cfg.Relay.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
