// Package di provides dependency injection for database connections.
package di

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/config"
	"github.com/aristath/vcaudit/internal/database"
)

// InitializeDatabases opens the reference and ledger databases, applies their
// schemas and, when DATABASE_URL is set, connects the Postgres result store.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// reference.db - companies, market indices and comparables
	referenceDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "reference.db"),
		Profile: database.ProfileStandard,
		Name:    database.NameReference,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reference database: %w", err)
	}
	container.ReferenceDB = referenceDB

	// ledger.db - saved valuation results
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger, // Maximum safety for the audit trail
		Name:    database.NameLedger,
	})
	if err != nil {
		referenceDB.Close()
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	for _, db := range []*database.DB{referenceDB, ledgerDB} {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to initialize postgres result store: %w", err)
		}
		container.PostgresPool = pool
		log.Info().Msg("Saved valuations stored in Postgres")
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized and schemas applied")

	return container, nil
}
