// Package di provides dependency injection type definitions.
package di

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aristath/vcaudit/internal/database"
	"github.com/aristath/vcaudit/internal/modules/companies"
	"github.com/aristath/vcaudit/internal/modules/market"
	"github.com/aristath/vcaudit/internal/modules/valuation"
	"github.com/aristath/vcaudit/internal/reliability"
	"github.com/aristath/vcaudit/internal/scheduler"
)

// Container holds all application dependencies. It is created by Wire and
// passed to the server, which reads services from it.
type Container struct {
	// Databases
	ReferenceDB  *database.DB  // companies, index points, comparables
	LedgerDB     *database.DB  // saved valuations (unless Postgres is configured)
	PostgresPool *pgxpool.Pool // nil unless DATABASE_URL is set

	// Repositories
	CompanyRepo     *companies.Repository
	IndexRepo       *market.IndexRepository
	ComparablesRepo *market.ComparablesRepository
	ResultStore     valuation.ResultStore

	// Services
	Engine           *valuation.Engine
	ValuationService *valuation.Service
	IndexService     *market.IndexService
	ArchiveService   *reliability.ArchiveService // nil when no archive bucket is configured
}

// Databases returns the sqlite databases for maintenance and status reporting.
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.ReferenceDB, c.LedgerDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close releases every database handle.
func (c *Container) Close() {
	if c.PostgresPool != nil {
		c.PostgresPool.Close()
	}
	for _, db := range c.Databases() {
		_ = db.Close()
	}
}

// JobInstances holds the background jobs so they can be scheduled and
// triggered manually. Archive is nil when the archive is disabled.
type JobInstances struct {
	Archive     scheduler.Job
	Revalue     scheduler.Job
	Maintenance scheduler.Job
}
