// Command spendvoice-export writes the full data export document to stdout
// or to a file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"spendvoice/internal/cli"
	"spendvoice/internal/log"
	"spendvoice/internal/services"
	"spendvoice/internal/storage"
)

func main() {
	out := flag.String("o", "", "write the export to this file instead of stdout")
	timeout := flag.Duration("timeout", 30*time.Second, "abort the export after this long")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentStorage)
	cfg := cli.LoadAndValidateConfig(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "timezone", cfg.Timezone, log.FieldError, err)
		os.Exit(1)
	}
	store, err := cli.OpenBackend(cfg)
	if err != nil {
		logger.Error("Failed to open data backend", "backend", cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	coordinator := services.NewSaveCoordinator(storage.NewLedger(store, storage.WithLocation(loc)), store, nil,
		services.WithLogger(logger))
	exp, err := coordinator.Export(ctx)
	if err != nil {
		logger.Error("Export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
		os.Exit(1)
	}

	if err := write(*out, exp); err != nil {
		logger.Error("Writing export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
		os.Exit(1)
	}
	if *out != "" {
		logger.Info("Export written", "file", *out, "months", len(exp.Transactions))
	}
}

func write(path string, exp services.Export) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}
