// Package app wires the application's dependencies together.
package app

import (
	"context"
	"fmt"

	"github.com/upb/rag-gateway/config"
	"github.com/upb/rag-gateway/middleware"
	"github.com/upb/rag-gateway/repositories"
	"github.com/upb/rag-gateway/repositories/postgres"
	"github.com/upb/rag-gateway/services/chat"
	"github.com/upb/rag-gateway/services/encoder"
	"github.com/upb/rag-gateway/services/generator"
	"github.com/upb/rag-gateway/services/history"
	"github.com/upb/rag-gateway/services/ingest"
	"github.com/upb/rag-gateway/services/ranker"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies. This is the central wiring
// point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Fragments repositories.FragmentRepository

	// Services
	Encoder   *encoder.Service
	Ranker    *ranker.Service
	Generator *generator.Service
	History   *history.Service
	Chat      *chat.Service
	Ingest    *ingest.Service

	// Middleware
	Session *middleware.SessionMiddleware
}

// NewDependencies creates and wires up all application dependencies. The
// embedding endpoint is probed once here: a failure aborts startup before the
// server accepts traffic.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	db, err := postgres.NewDB(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.DB = db

	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	deps.Fragments = postgres.NewFragmentRepository(db, logger)

	deps.Encoder = encoder.NewService(cfg.Providers.Embeddings, logger)
	if err := deps.Encoder.Probe(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("embedding endpoint probe failed: %w", err)
	}

	deps.Ranker = ranker.NewService(logger)
	deps.Generator = generator.NewService(cfg.Providers.Groq, logger)
	deps.History = history.NewService(cfg.Retrieval.HistoryLimit, logger)

	deps.Chat = chat.NewService(
		deps.Fragments,
		deps.Encoder,
		deps.Ranker,
		deps.Generator,
		deps.History,
		cfg.Retrieval,
		logger,
	)

	deps.Ingest = ingest.NewService(deps.Fragments, deps.Encoder, cfg.Ingest, logger)

	deps.Session = middleware.NewSessionMiddleware(logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
