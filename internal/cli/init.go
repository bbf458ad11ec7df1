// Package cli provides the initialization steps shared by cmd/spendvoice
// and cmd/spendvoice-export.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendvoice/internal/config"
	"spendvoice/internal/log"
	"spendvoice/internal/metrics"
	"spendvoice/internal/sink"
	"spendvoice/internal/storage"
	"spendvoice/internal/storage/memory"
)

// SetupLogger builds the process logger at level and makes it the slog default.
func SetupLogger(level string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend opens the configured persistence backend.
func OpenBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.DataBackend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend at %s: %w", cfg.SQLiteDBPath, err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}

// SeedWebhookURL stores cfg.WebhookURL when no endpoint has been saved yet.
func SeedWebhookURL(ctx context.Context, cfg *config.Config, store storage.SettingsStore) error {
	if cfg.WebhookURL == "" {
		return nil
	}
	current, err := store.WebhookURL(ctx)
	if err != nil {
		return fmt.Errorf("read webhook url: %w", err)
	}
	if current != "" {
		return nil
	}
	return store.SetWebhookURL(ctx, cfg.WebhookURL)
}

// Sinks is the set of delivery targets for confirmed transactions.
type Sinks struct {
	List    []sink.Sink
	closers []func() error
}

// Close releases broker connections.
func (s *Sinks) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// BuildSinks always includes the webhook sink, whose endpoint is read from
// store on every delivery, plus the broker and spreadsheet sinks when
// configured.
func BuildSinks(ctx context.Context, cfg *config.Config, store storage.SettingsStore, logger *log.Logger) (*Sinks, error) {
	out := &Sinks{
		List: []sink.Sink{sink.NewWebhook(store, &http.Client{Timeout: cfg.SinkTimeout})},
	}

	if cfg.AMQPEnabled() {
		broker, err := sink.DialBroker(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("connect broker sink: %w", err)
		}
		out.List = append(out.List, broker)
		out.closers = append(out.closers, broker.Close)
		logger.Info("Broker sink enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	if cfg.SheetsEnabled() {
		svc, err := sink.NewSheetsService(ctx, cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("create sheets sink: %w", err)
		}
		out.List = append(out.List, sink.NewSheets(svc, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName))
		logger.Info("Sheets sink enabled", "sheet", cfg.GoogleSheetName)
	}

	return out, nil
}

// NewDispatcher wires the sinks into a background dispatcher.
func NewDispatcher(cfg *config.Config, sinks *Sinks, logger *log.Logger, m *metrics.Metrics) *sink.Dispatcher {
	return sink.NewDispatcher(sinks.List,
		sink.WithTimeout(cfg.SinkTimeout),
		sink.WithLogger(logger),
		sink.WithMetrics(m),
	)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		cancel()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
