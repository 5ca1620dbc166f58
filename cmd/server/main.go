package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"shoplink-backend/internal/common/logger"
	"shoplink-backend/internal/config"
	"shoplink-backend/internal/events"
	apphttp "shoplink-backend/internal/http"
	"shoplink-backend/internal/observability"
	"shoplink-backend/internal/platform/kafka"
	"shoplink-backend/internal/service/identity"
	"shoplink-backend/internal/service/messenger"
	"shoplink-backend/internal/service/webhook"
	"shoplink-backend/internal/storage"
	"shoplink-backend/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Init("shoplink-backend", cfg.Debug)

	log.Info().
		Str("storage", cfg.Storage.Driver).
		Bool("debug", cfg.Debug).
		Msg("Starting Shoplink Backend")

	if cfg.Messenger.PageAccessToken == "" {
		log.Warn().Msg("PAGE_ACCESS_TOKEN is not set; outbound messages will fail")
	}
	if cfg.Messenger.VerifyToken == "" {
		log.Warn().Msg("VERIFY_TOKEN is not set; webhook verification will be refused")
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Invalid storage configuration")
	}
	defer store.Close()

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Events.KafkaBrokers) > 0 {
		publisher = kafka.NewPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		log.Info().Strs("brokers", cfg.Events.KafkaBrokers).Str("topic", cfg.Events.KafkaTopic).Msg("Signup events enabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}()

	users := identity.NewService(store, publisher, metrics)
	sender := messenger.NewClient(cfg, metrics)
	processor := webhook.NewProcessor(users, sender, metrics)
	runner := workers.NewRunner()

	// The store serves upserts while its schema is still pending.
	_ = runner.Submit("storage:prepare", func(context.Context) {
		_ = store.PrepareWithRetry(ctx, time.Second)
	})

	router := apphttp.NewRouter(apphttp.RouterDeps{
		Webhook: apphttp.NewWebhookHandlers(webhook.NewVerifier(cfg.Messenger.VerifyToken), processor, runner, metrics),
		Storage: users,
		Metrics: metrics,
		Debug:   cfg.Debug,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		stats := runner.Stats()
		log.Error().Err(err).Int64("in_flight", stats.InFlight).Msg("Pending events abandoned")
	}

	log.Info().Msg("Server exited")
}
