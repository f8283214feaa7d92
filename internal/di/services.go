// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/config"
	"github.com/aristath/vcaudit/internal/modules/market"
	"github.com/aristath/vcaudit/internal/modules/valuation"
	"github.com/aristath/vcaudit/internal/reliability"
)

// InitializeServices builds the valuation engine and the services around it.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	engine, err := valuation.NewEngine(
		cfg.Valuation,
		valuation.WithLogger(log),
		valuation.WithParallelExecution(cfg.ParallelMethods),
	)
	if err != nil {
		return fmt.Errorf("failed to create valuation engine: %w", err)
	}
	container.Engine = engine

	container.ValuationService = valuation.NewService(
		engine,
		container.CompanyRepo,
		container.IndexRepo,
		container.ComparablesRepo,
		container.ResultStore,
		valuation.ServiceConfig{
			DefaultIndex: cfg.DefaultIndex,
			BatchWorkers: cfg.BatchWorkers,
		},
		log,
	)

	container.IndexService = market.NewIndexService(container.IndexRepo, log)

	if cfg.Archive.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		objects, err := reliability.NewS3ObjectStore(ctx, cfg.Archive, log)
		if err != nil {
			return fmt.Errorf("failed to create archive object store: %w", err)
		}
		container.ArchiveService = reliability.NewArchiveService(
			container.ResultStore,
			objects,
			cfg.Archive.Prefix,
			cfg.Archive.BatchSize,
			log,
		)
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("Valuation archive enabled")
	} else {
		log.Info().Msg("Valuation archive disabled (no ARCHIVE_BUCKET)")
	}

	log.Info().
		Int("min_comparables", engine.Config().MinComparables).
		Str("default_index", cfg.DefaultIndex).
		Bool("parallel_methods", cfg.ParallelMethods).
		Msg("Services initialized")
	return nil
}
