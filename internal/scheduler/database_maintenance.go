package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/database"
)

// walFramesWarning is the WAL size, in frames, above which a checkpoint is forced.
const walFramesWarning = 1000

// DatabaseMaintenanceJob verifies integrity of the sqlite databases and keeps
// their WAL files from growing without bound
type DatabaseMaintenanceJob struct {
	log       zerolog.Logger
	databases []*database.DB
	timeout   time.Duration
}

// NewDatabaseMaintenanceJob creates a new DatabaseMaintenanceJob. Nil databases are ignored.
func NewDatabaseMaintenanceJob(log zerolog.Logger, databases ...*database.DB) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		log:       log.With().Str("job", "database_maintenance").Logger(),
		databases: databases,
		timeout:   5 * time.Minute,
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the database maintenance job. A failed integrity check fails the
// job; checkpoint problems are only logged.
func (j *DatabaseMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	checked := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Database integrity check failed")
			return fmt.Errorf("database %s failed its health check: %w", db.Name(), err)
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, frames, checkpointed int
		err := db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to check WAL checkpoint")
		} else if frames > walFramesWarning {
			j.log.Warn().
				Str("database", db.Name()).
				Int("wal_frames", frames).
				Int("checkpointed", checkpointed).
				Msg("WAL file is large, truncating")
			if err := db.WALCheckpoint("TRUNCATE"); err != nil {
				j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL truncate failed")
			}
		}

		checked++
	}

	j.log.Info().Int("checked", checked).Msg("Database maintenance completed")
	return nil
}
