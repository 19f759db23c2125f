package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetbuddy/internal/alert"
	bbamqp "budgetbuddy/internal/amqp"
	"budgetbuddy/internal/auth"
	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/config"
	apphttp "budgetbuddy/internal/http"
	"budgetbuddy/internal/sample"
	"budgetbuddy/internal/session"
	"budgetbuddy/internal/storage"
	"budgetbuddy/internal/translate"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cacheManager := cache.NewManager()

	// Translation backend is optional; without an API key every request
	// falls back to the source text.
	var backend translate.Backend
	if cfg.GoogleTranslateAPIKey != "" {
		backend, err = translate.NewGoogleBackend(ctx, cfg.GoogleTranslateAPIKey)
		if err != nil {
			logger.Error("Failed to initialize translate backend", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Translate backend initialized")
	} else {
		backend = noopBackend{}
		logger.Info("Translation disabled - no GOOGLE_TRANSLATE_API_KEY provided")
	}
	translator := translate.NewService(backend, cacheManager, cfg.TranslateCacheTTL, cfg.TranslateDebounce)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	sessionManager := session.NewManager(store)

	monitor := alert.NewMonitor(store, sessionManager, cfg.AlertInterval)
	monitor.Start(ctx)
	defer monitor.Stop()

	// AMQP is optional; without it sample generation runs inline in the
	// webhook handler.
	var publisher apphttp.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := bbamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - sample generation runs inline")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:               store,
		Auth:                auth.NewService(store),
		Session:             sessionManager,
		Translator:          translator,
		Monitor:             monitor,
		Publisher:           publisher,
		Sampler:             sample.NewGenerator(store),
		StripeSecretKey:     cfg.StripeSecretKey,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		CheckoutSuccessURL:  cfg.CheckoutSuccessURL,
		CheckoutCancelURL:   cfg.CheckoutCancelURL,
		TranslateRateLimit:  cfg.TranslateRateLimit,
		TranslateRateWindow: cfg.TranslateRateWindow,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting budgetbuddy server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// noopBackend keeps the translation service wired when no API key is
// configured.
type noopBackend struct{}

func (noopBackend) Translate(_ context.Context, texts []string, _ string) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)
	return out, nil
}
