package market

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/vcaudit/internal/domain"
	"github.com/aristath/vcaudit/pkg/formulas"
)

const daysPerYear = 365.25

// IndexStats summarises an index series for auditors checking the market
// adjustment a Last-Round valuation applied.
type IndexStats struct {
	FirstDate            domain.Date     `json:"first_date"`
	LastDate             domain.Date     `json:"last_date"`
	Name                 string          `json:"name"`
	FirstValue           decimal.Decimal `json:"first_value"`
	LatestValue          decimal.Decimal `json:"latest_value"`
	PeriodReturn         float64         `json:"period_return"`
	AnnualizedVolatility float64         `json:"annualized_volatility"`
	MaxDrawdown          float64         `json:"max_drawdown"`
	Points               int             `json:"points"`
}

// IndexService provides analytics over index series
type IndexService struct {
	provider domain.IndexProvider
	log      zerolog.Logger
}

// NewIndexService creates a new index service
func NewIndexService(provider domain.IndexProvider, log zerolog.Logger) *IndexService {
	return &IndexService{
		provider: provider,
		log:      log.With().Str("component", "index_service").Logger(),
	}
}

// Stats computes descriptive statistics for the named index. Volatility is
// annualized from the series' own average observation spacing.
func (s *IndexService) Stats(ctx context.Context, name string) (*IndexStats, error) {
	index, err := s.provider.GetSeries(ctx, name)
	if err != nil {
		return nil, err
	}

	points := index.Points
	first, last := points[0], points[len(points)-1]
	stats := &IndexStats{
		Name:        index.Name,
		Points:      len(points),
		FirstDate:   first.Date,
		LastDate:    last.Date,
		FirstValue:  first.Value,
		LatestValue: last.Value,
	}
	if len(points) < 2 {
		return stats, nil
	}

	levels := make([]float64, len(points))
	for i, p := range points {
		levels[i] = p.Value.InexactFloat64()
	}

	if levels[0] != 0 {
		stats.PeriodReturn = (levels[len(levels)-1] - levels[0]) / levels[0]
	}
	stats.MaxDrawdown = formulas.MaxDrawdown(levels)

	returns := formulas.CalculateReturns(levels)
	spanDays := last.Date.Sub(first.Date.Time).Hours() / 24
	if spanDays > 0 && len(returns) >= 2 {
		periodsPerYear := daysPerYear / (spanDays / float64(len(returns)))
		stats.AnnualizedVolatility = formulas.StdDev(returns) * math.Sqrt(periodsPerYear)
	}

	s.log.Debug().
		Str("index", name).
		Int("points", stats.Points).
		Float64("period_return", stats.PeriodReturn).
		Msg("Computed index statistics")

	return stats, nil
}
