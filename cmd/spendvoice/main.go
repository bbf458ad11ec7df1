package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"spendvoice/internal/cli"
	apphttp "spendvoice/internal/http"
	"spendvoice/internal/log"
	"spendvoice/internal/metrics"
	"spendvoice/internal/parser"
	"spendvoice/internal/services"
	"spendvoice/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "timezone", cfg.Timezone, log.FieldError, err)
		os.Exit(1)
	}

	shutdownMetrics, err := metrics.InitProvider()
	if err != nil {
		logger.Error("Failed to initialize metrics", log.FieldError, err)
		os.Exit(1)
	}
	m := metrics.DefaultMetrics()

	store, err := cli.OpenBackend(cfg)
	if err != nil {
		logger.Error("Failed to open data backend", "backend", cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}
	if err := cli.SeedWebhookURL(context.Background(), cfg, store); err != nil {
		logger.Error("Failed to seed webhook url", log.FieldError, err)
		os.Exit(1)
	}

	sinks, err := cli.BuildSinks(context.Background(), cfg, store, logger)
	if err != nil {
		logger.Error("Failed to initialize sinks", log.FieldError, err)
		os.Exit(1)
	}
	dispatcher := cli.NewDispatcher(cfg, sinks, logger, m)

	ledger := storage.NewLedger(store, storage.WithLocation(loc))
	coordinator := services.NewSaveCoordinator(ledger, store, dispatcher,
		services.WithDuplicateWindow(cfg.DuplicateWindow),
		services.WithMetrics(m),
		services.WithLogger(logger),
	)
	p := parser.New(store,
		parser.WithStageDelay(cfg.ParseStageDelay),
		parser.WithMetrics(m),
		parser.WithLogger(logger),
	)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Parser:             p,
		Saver:              coordinator,
		Ledger:             ledger,
		Store:              store,
		Logger:             logger,
		Metrics:            metrics.Handler(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		dispatcher.Wait()
		if err := sinks.Close(); err != nil {
			logger.Error("Sink close error", log.FieldError, err)
		}
		if err := store.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
		if err := shutdownMetrics(ctx); err != nil {
			logger.Error("Metrics shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting spendvoice server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", loc.String(),
		"sinks", len(sinks.List))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
