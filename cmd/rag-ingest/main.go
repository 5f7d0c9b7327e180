// Command rag-ingest loads the documents in the data directory into the
// fragment store, embedding each chunk along the way.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/upb/rag-gateway/app"
	"github.com/upb/rag-gateway/config"
	"github.com/upb/rag-gateway/internal/observability"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer func() { _ = deps.Close(ctx) }()

	summary, err := deps.Ingest.Run(ctx)
	if err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}

	logger.Info("ingestion run finished",
		zap.String("data_dir", cfg.Ingest.DataDir),
		zap.Int("txt_files", summary.TxtFiles),
		zap.Int("pdf_files", summary.PdfFiles),
		zap.Int("chunks", summary.Chunks),
		zap.Int("skipped_files", summary.SkippedFiles))
}
