package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/tessora/marketscope/internal/aggregator"
	"github.com/tessora/marketscope/internal/alerts"
	"github.com/tessora/marketscope/internal/config"
	"github.com/tessora/marketscope/internal/logger"
	"github.com/tessora/marketscope/internal/metrics"
	"github.com/tessora/marketscope/internal/provider/kalshi"
	"github.com/tessora/marketscope/internal/provider/polymarket"
	"github.com/tessora/marketscope/internal/server"
	"github.com/tessora/marketscope/internal/store"
	"github.com/tessora/marketscope/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	// Initialize the durable store
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to open store: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close store: %v", err)
		}
	}()

	m := metrics.New()

	// Provider adapters, in ranking tie-break order
	polyClient := polymarket.NewClient(
		cfg.Polymarket.BaseURL,
		cfg.Polymarket.Timeout,
		cfg.Polymarket.RateLimit,
		cfg.Polymarket.RateBurst,
	)
	kalshiClient := kalshi.NewClient(
		cfg.Kalshi.BaseURL,
		cfg.Kalshi.APIKey,
		cfg.Kalshi.Timeout,
		cfg.Kalshi.RateLimit,
		cfg.Kalshi.RateBurst,
	)
	if cfg.Kalshi.APIKey == "" {
		logger.Warn("Kalshi API key not configured; Kalshi markets will be unavailable")
	}

	agg := aggregator.New(db, m, polyClient, kalshiClient)

	// Initialize Telegram notifications
	var notifier alerts.Notifier
	if cfg.Telegram.Enabled {
		telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		notifier = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	engine := alerts.New(db, notifier, m)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Background jobs: market refresh and alert evaluation
	scheduler := cron.New()
	if spec := cfg.Aggregator.RefreshSchedule; spec != "" {
		_, err := scheduler.AddFunc(spec, func() {
			listing, err := agg.ListMarkets(ctx, cfg.Aggregator.RefreshLimit, aggregator.Filters{})
			if err != nil {
				logger.Error("Scheduled refresh failed: %v", err)
				return
			}
			logger.Info("Refreshed %d markets", listing.Count)
		})
		if err != nil {
			logger.Fatal("Invalid refresh schedule %q: %v", spec, err)
		}
	}
	if spec := cfg.Alerts.CheckSchedule; spec != "" {
		_, err := scheduler.AddFunc(spec, func() {
			triggered, err := engine.EvaluatePending(ctx)
			if err != nil {
				logger.Error("Scheduled alert check failed: %v", err)
				return
			}
			if len(triggered) > 0 {
				logger.Info("Alert check triggered %d rule(s)", len(triggered))
			}
		})
		if err != nil {
			logger.Fatal("Invalid alert check schedule %q: %v", spec, err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP API
	srv := server.New(cfg.Server.Addr, agg, engine, m, cfg.Aggregator.DefaultLimit)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run()
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, cleaning up...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed: %v", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server: %v", err)
	}
	logger.Info("Service stopped")
}
