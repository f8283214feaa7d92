package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/reliability"
)

// Archiver archives pending saved valuations
type Archiver interface {
	ArchivePending(ctx context.Context) (*reliability.ArchiveReport, error)
}

// ArchiveJob copies newly saved valuations to the audit archive
type ArchiveJob struct {
	archiver Archiver
	timeout  time.Duration
	log      zerolog.Logger
}

// NewArchiveJob creates a new ArchiveJob
func NewArchiveJob(archiver Archiver, log zerolog.Logger) *ArchiveJob {
	return &ArchiveJob{
		archiver: archiver,
		timeout:  10 * time.Minute,
		log:      log.With().Str("job", "archive_valuations").Logger(),
	}
}

// Name returns the job name
func (j *ArchiveJob) Name() string {
	return "archive_valuations"
}

// Run executes the archive job. Individual upload failures are retried on the
// next run; the job only fails when nothing could be listed or every upload failed.
func (j *ArchiveJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.archiver.ArchivePending(ctx)
	if err != nil {
		return fmt.Errorf("archive pass failed: %w", err)
	}
	if report.Failed > 0 && report.Archived == 0 {
		return fmt.Errorf("all %d archive uploads failed", report.Failed)
	}

	j.log.Info().Int("archived", report.Archived).Int("failed", report.Failed).Msg("Archive job completed")
	return nil
}
