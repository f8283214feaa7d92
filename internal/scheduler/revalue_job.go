package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/domain"
	"github.com/aristath/vcaudit/internal/modules/valuation"
)

// CompanyLister lists the ids of every stored company
type CompanyLister interface {
	IDs(ctx context.Context) ([]string, error)
}

// BatchValuer values companies in bulk
type BatchValuer interface {
	RunBatch(ctx context.Context, companyIDs []string, asOf domain.Date, indexName string) []valuation.BatchItem
}

// RevalueJob values the whole portfolio as of the run date and saves every
// successful result, so the ledger holds a periodic mark for each company
type RevalueJob struct {
	companies CompanyLister
	valuer    BatchValuer
	store     valuation.ResultStore
	now       func() time.Time
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRevalueJob creates a new RevalueJob
func NewRevalueJob(companies CompanyLister, valuer BatchValuer, store valuation.ResultStore, log zerolog.Logger) *RevalueJob {
	return &RevalueJob{
		companies: companies,
		valuer:    valuer,
		store:     store,
		now:       time.Now,
		timeout:   30 * time.Minute,
		log:       log.With().Str("job", "revalue_portfolio").Logger(),
	}
}

// Name returns the job name
func (j *RevalueJob) Name() string {
	return "revalue_portfolio"
}

// Run executes the revaluation. Companies that cannot be valued are logged and
// skipped; a save failure fails the job after the remaining results are saved.
func (j *RevalueJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	ids, err := j.companies.IDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}
	if len(ids) == 0 {
		j.log.Info().Msg("No companies to revalue")
		return nil
	}

	asOf := domain.DateOf(j.now())
	items := j.valuer.RunBatch(ctx, ids, asOf, "")

	saved, skipped := 0, 0
	var saveErr error
	for _, item := range items {
		if item.Error != nil {
			j.log.Warn().
				Str("company_id", item.CompanyID).
				Str("code", string(item.Error.Code)).
				Str("reason", item.Error.Message).
				Msg("Company not revalued")
			skipped++
			continue
		}
		if err := j.store.Save(ctx, item.Result); err != nil {
			j.log.Error().Err(err).Str("company_id", item.CompanyID).Msg("Failed to save revaluation")
			if saveErr == nil {
				saveErr = fmt.Errorf("failed to save revaluation of %s: %w", item.CompanyID, err)
			}
			continue
		}
		saved++
	}

	j.log.Info().
		Str("as_of_date", asOf.String()).
		Int("saved", saved).
		Int("skipped", skipped).
		Msg("Portfolio revaluation completed")

	return saveErr
}
