// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/config"
	"github.com/aristath/vcaudit/internal/scheduler"
)

// MaintenanceSchedule runs database maintenance every night at 03:30.
const MaintenanceSchedule = "30 3 * * *"

// RegisterJobs creates the background jobs and adds them to sched. sched may
// be nil when only the instances are wanted, e.g. for manual triggering.
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		Maintenance: scheduler.NewDatabaseMaintenanceJob(log, container.Databases()...),
		Revalue: scheduler.NewRevalueJob(
			container.CompanyRepo,
			container.ValuationService,
			container.ResultStore,
			log,
		),
	}
	if container.ArchiveService != nil {
		instances.Archive = scheduler.NewArchiveJob(container.ArchiveService, log)
	}

	if sched == nil {
		return instances, nil
	}

	if err := sched.AddJob(MaintenanceSchedule, instances.Maintenance); err != nil {
		return nil, err
	}
	if err := sched.AddJob(cfg.Schedule.Revalue, instances.Revalue); err != nil {
		return nil, err
	}
	if instances.Archive != nil {
		if err := sched.AddJob(cfg.Schedule.Archive, instances.Archive); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("revalue_schedule", cfg.Schedule.Revalue).
		Str("archive_schedule", cfg.Schedule.Archive).
		Bool("archive_enabled", instances.Archive != nil).
		Msg("Background jobs registered")
	return instances, nil
}
