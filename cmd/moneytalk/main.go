package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moneytalk/internal/ai"
	"moneytalk/internal/amqp"
	"moneytalk/internal/cli"
	apphttp "moneytalk/internal/http"
	applog "moneytalk/internal/log"
	"moneytalk/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// AMQP is optional: without it summaries are rebuilt inline and
	// recommendation mirroring happens synchronously.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer events.Close()
		logger.Info("Event pipeline enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Event pipeline disabled - no AMQP_URL provided")
	}

	aiClient := ai.NewClient(ai.Config{
		APIKey:          cfg.AIAPIKey,
		BaseURL:         cfg.AIBaseURL,
		Model:           cfg.AIModel,
		TranscribeModel: cfg.AITranscribeModel,
		Timeout:         cfg.AITimeout,
	})

	// nil interfaces must stay nil, not wrap a nil pointer
	var txEvents services.EventPublisher
	var recEvents services.RecommendationsPublisher
	if events != nil {
		txEvents = events
		recEvents = events
	}

	txService := services.NewTransactionService(repo, txEvents)
	recService := services.NewRecommendationService(repo, aiClient, recEvents)
	voiceService := services.NewVoiceService(aiClient, repo)
	profileService := services.NewProfileService(repo)
	billingService := services.NewBillingService(repo, cfg.BillingWebhookSecret)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions:    txService,
		Recommendations: recService,
		Voice:           voiceService,
		Profile:         profileService,
		Billing:         billingService,
		InsightsTTL:     cfg.InsightsCacheTTL,
		Ready:           repo.Ping,
	})

	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 2 * time.Minute // AI calls can be slow
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	logger.Info("Starting moneytalk server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
