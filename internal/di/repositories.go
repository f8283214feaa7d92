// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/config"
	"github.com/aristath/vcaudit/internal/modules/companies"
	"github.com/aristath/vcaudit/internal/modules/market"
	"github.com/aristath/vcaudit/internal/modules/valuation"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.CompanyRepo = companies.NewRepository(container.ReferenceDB.Conn(), log)
	container.IndexRepo = market.NewIndexRepository(container.ReferenceDB.Conn(), log)
	container.ComparablesRepo = market.NewComparablesRepository(
		container.ReferenceDB.Conn(),
		cfg.Valuation.MinComparables,
		log,
	)

	// Postgres takes over saved valuations when configured; the ledger DB is
	// still opened so maintenance and status reporting see the same layout.
	if container.PostgresPool != nil {
		container.ResultStore = valuation.NewPostgresResultStore(container.PostgresPool, log)
	} else {
		container.ResultStore = valuation.NewSQLiteResultStore(container.LedgerDB.Conn(), log)
	}

	log.Info().Msg("Repositories initialized")
	return nil
}
