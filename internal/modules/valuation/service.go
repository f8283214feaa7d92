package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// Request identifies one stored company to value.
type Request struct {
	AsOf      domain.Date `json:"as_of_date"`
	CompanyID string      `json:"company_id"`
	IndexName string      `json:"index_name,omitempty"`
}

// Service loads reference data and runs the engine.
type Service struct {
	engine       *Engine
	companies    domain.CompanyProvider
	indices      domain.IndexProvider
	comparables  domain.ComparablesProvider
	store        ResultStore
	defaultIndex string
	batchWorkers int
	now          func() time.Time
	log          zerolog.Logger
}

// ServiceConfig holds the service's tunables.
type ServiceConfig struct {
	DefaultIndex string
	BatchWorkers int
}

// NewService creates a valuation service. store may be nil when results are
// never persisted.
func NewService(
	engine *Engine,
	companies domain.CompanyProvider,
	indices domain.IndexProvider,
	comparables domain.ComparablesProvider,
	store ResultStore,
	cfg ServiceConfig,
	log zerolog.Logger,
) *Service {
	workers := cfg.BatchWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		engine:       engine,
		companies:    companies,
		indices:      indices,
		comparables:  comparables,
		store:        store,
		defaultIndex: cfg.DefaultIndex,
		batchWorkers: workers,
		now:          time.Now,
		log:          log.With().Str("component", "valuation_service").Logger(),
	}
}

// Engine returns the engine the service runs.
func (s *Service) Engine() *Engine {
	return s.engine
}

// DefaultIndex returns the index used when a request names none.
func (s *Service) DefaultIndex() string {
	return s.defaultIndex
}

// Run values a stored company. A missing company surfaces as *domain.NotFoundError;
// missing reference data only makes the methods that need it skip.
func (s *Service) Run(ctx context.Context, req Request) (*vdomain.ValuationResult, error) {
	company, err := s.companies.Get(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, company, req.AsOf, req.IndexName)
}

// RunCustom validates caller-supplied company data and values it.
func (s *Service) RunCustom(ctx context.Context, company domain.CompanyData, asOf domain.Date, indexName string) (*vdomain.ValuationResult, error) {
	asOf = s.resolveAsOf(asOf)
	if err := company.Validate(asOf); err != nil {
		return nil, err
	}
	return s.run(ctx, company, asOf, indexName)
}

// RunAndSave runs a stored company and persists the result.
func (s *Service) RunAndSave(ctx context.Context, req Request) (*vdomain.ValuationResult, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no result store configured")
	}

	result, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// RunCustomAndSave validates and values caller-supplied company data, then
// persists the result.
func (s *Service) RunCustomAndSave(ctx context.Context, company domain.CompanyData, asOf domain.Date, indexName string) (*vdomain.ValuationResult, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no result store configured")
	}

	result, err := s.RunCustom(ctx, company, asOf, indexName)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, company domain.CompanyData, asOf domain.Date, indexName string) (*vdomain.ValuationResult, error) {
	asOf = s.resolveAsOf(asOf)
	if indexName == "" {
		indexName = s.defaultIndex
	}

	index, comparables, err := s.fetchReferenceData(ctx, company.Company.Sector, indexName)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.RunWithData(company, index, comparables, asOf)
	if err != nil {
		s.log.Warn().Err(err).Str("company_id", company.Company.ID).Msg("Valuation produced no result")
		return nil, err
	}

	s.log.Info().
		Str("company_id", result.CompanyID).
		Str("primary_method", string(result.Summary.PrimaryMethod)).
		Str("primary_value", result.Summary.PrimaryValue.String()).
		Str("confidence", string(result.Summary.OverallConfidence)).
		Str("input_hash", result.InputHash).
		Msg("Valuation completed")
	return result, nil
}

// fetchReferenceData loads the index series and the sector's comparables
// concurrently, one provider call each.
func (s *Service) fetchReferenceData(ctx context.Context, sector, indexName string) (*domain.MarketIndex, *domain.ComparableSet, error) {
	var (
		index       *domain.MarketIndex
		comparables *domain.ComparableSet
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if indexName == "" || s.indices == nil {
			return nil
		}
		series, err := s.indices.GetSeries(gctx, indexName)
		if absent(err) {
			s.log.Debug().Err(err).Str("index", indexName).Msg("Index unavailable")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load index %s: %w", indexName, err)
		}
		index = series
		return nil
	})
	g.Go(func() error {
		if sector == "" || s.comparables == nil {
			return nil
		}
		set, err := s.comparables.GetSet(gctx, sector)
		if absent(err) {
			s.log.Debug().Err(err).Str("sector", sector).Msg("Comparables unavailable")
			// A short set still reaches the method, which reports the count.
			if domain.IsInsufficientData(err) {
				comparables = set
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load comparables for %s: %w", sector, err)
		}
		comparables = set
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return index, comparables, nil
}

func (s *Service) resolveAsOf(asOf domain.Date) domain.Date {
	if asOf.IsZero() {
		return domain.DateOf(s.now())
	}
	return asOf
}

// absent reports whether err only means the data does not exist.
func absent(err error) bool {
	return domain.IsNotFound(err) || domain.IsInsufficientData(err)
}
