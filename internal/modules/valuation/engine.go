// Package valuation runs valuation methods against company data and reconciles
// their outputs into one auditable result.
package valuation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
	"github.com/aristath/vcaudit/internal/modules/valuation/methods"
)

// Engine orchestrates one valuation: prerequisite checks, method execution,
// reconciliation, narrative and hashing. It holds no per-run state.
type Engine struct {
	cfg      vdomain.Config
	registry *methods.Registry
	clock    func() time.Time
	newID    func() uuid.UUID
	log      zerolog.Logger
	parallel bool
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock sets the source of CreatedAt timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithIDGenerator sets the source of result ids.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithParallelExecution runs runnable methods concurrently. Results are still
// collected in registry order before reconciliation.
func WithParallelExecution(enabled bool) Option {
	return func(e *Engine) { e.parallel = enabled }
}

// WithRegistry replaces the default method registry.
func WithRegistry(registry *methods.Registry) Option {
	return func(e *Engine) { e.registry = registry }
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log.With().Str("component", "valuation_engine").Logger() }
}

// NewEngine creates an engine bound to a validated configuration.
func NewEngine(cfg vdomain.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg.Clone(),
		registry: methods.NewPopulatedRegistry(),
		clock:    time.Now,
		newID:    uuid.New,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() vdomain.Config {
	return e.cfg.Clone()
}

// Registry returns the method registry in use.
func (e *Engine) Registry() *methods.Registry {
	return e.registry
}

// RunWithData values a company against the supplied reference data. index and
// comparables may be nil; methods needing them are then skipped. The only error
// is *vdomain.NoValidMethodsError, when no method produced a value.
func (e *Engine) RunWithData(
	company domain.CompanyData,
	index *domain.MarketIndex,
	comparables *domain.ComparableSet,
	asOf domain.Date,
) (*vdomain.ValuationResult, error) {
	in := methods.Inputs{
		Company:     company,
		Index:       index,
		Comparables: comparables,
		AsOf:        asOf,
	}
	instances := e.registry.Instantiate(e.cfg)

	var runnable []methods.Method
	var skipped []vdomain.MethodSkipped
	for _, m := range instances {
		if skip := methods.Check(m, in); skip != nil {
			e.log.Debug().
				Str("company_id", company.Company.ID).
				Str("method", string(m.ID())).
				Str("reason", skip.Reason).
				Msg("Method skipped")
			skipped = append(skipped, *skip)
			continue
		}
		runnable = append(runnable, m)
	}

	if len(runnable) == 0 {
		return nil, &vdomain.NoValidMethodsError{CompanyID: company.Company.ID, Skipped: skipped}
	}

	outcomes := e.execute(runnable, in)

	var results []vdomain.MethodResult
	for _, outcome := range outcomes {
		switch outcome.Status {
		case vdomain.OutcomeSucceeded:
			e.log.Debug().
				Str("company_id", company.Company.ID).
				Str("method", string(outcome.Result.Method)).
				Str("value", outcome.Result.Value.String()).
				Str("confidence", string(outcome.Result.Confidence)).
				Msg("Method succeeded")
			results = append(results, *outcome.Result)
		case vdomain.OutcomeSkipped:
			e.log.Debug().
				Str("company_id", company.Company.ID).
				Str("method", string(outcome.Skipped.Method)).
				Str("reason", outcome.Skipped.Reason).
				Msg("Method failed during execution")
			skipped = append(skipped, *outcome.Skipped)
		default:
			return nil, fmt.Errorf("unknown outcome status %q", outcome.Status)
		}
	}

	if len(results) == 0 {
		return nil, &vdomain.NoValidMethodsError{CompanyID: company.Company.ID, Skipped: skipped}
	}

	rec := reconcile(results, skipped, e.registry, e.cfg)

	indexName := ""
	if index != nil {
		indexName = index.Name
	}
	inputHash, err := InputHash(company, indexName, company.Company.Sector, asOf, e.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to hash valuation inputs: %w", err)
	}
	referenceHash, err := ReferenceDataHash(index, comparables)
	if err != nil {
		return nil, fmt.Errorf("failed to hash reference data: %w", err)
	}

	if skipped == nil {
		skipped = []vdomain.MethodSkipped{}
	}
	return &vdomain.ValuationResult{
		ID:                e.newID(),
		CompanyID:         company.Company.ID,
		CompanyName:       company.Company.Name,
		AsOfDate:          asOf,
		CreatedAt:         e.clock().UTC(),
		IndexName:         indexName,
		Sector:            company.Company.Sector,
		MethodResults:     results,
		SkippedMethods:    skipped,
		Comparison:        rec.comparison,
		Summary:           rec.summary,
		ConfigSnapshot:    e.cfg.Snapshot(),
		InputHash:         inputHash,
		ReferenceDataHash: referenceHash,
	}, nil
}

// execute runs methods and returns their outcomes in the order given.
func (e *Engine) execute(runnable []methods.Method, in methods.Inputs) []vdomain.Outcome {
	outcomes := make([]vdomain.Outcome, len(runnable))
	if !e.parallel || len(runnable) == 1 {
		for i, m := range runnable {
			outcomes[i] = methods.Execute(m, in)
		}
		return outcomes
	}

	var wg sync.WaitGroup
	for i, m := range runnable {
		wg.Add(1)
		go func(i int, m methods.Method) {
			defer wg.Done()
			outcomes[i] = methods.Execute(m, in)
		}(i, m)
	}
	wg.Wait()
	return outcomes
}
