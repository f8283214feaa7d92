package market

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/vcaudit/internal/database"
	"github.com/aristath/vcaudit/internal/domain"
)

const comparablesColumns = `ticker, sector, name, revenue_ttm, enterprise_value, market_cap, revenue_growth_yoy, as_of_date`

// ComparablesRepository handles sector comparable sets in the reference database.
// It implements domain.ComparablesProvider.
type ComparablesRepository struct {
	db             *sql.DB
	log            zerolog.Logger
	minComparables int
}

// NewComparablesRepository creates a repository that reports sectors with fewer
// than minComparables entries as insufficient.
func NewComparablesRepository(db *sql.DB, minComparables int, log zerolog.Logger) *ComparablesRepository {
	return &ComparablesRepository{
		db:             db,
		log:            log.With().Str("repo", "comparables").Logger(),
		minComparables: minComparables,
	}
}

// GetSet loads a sector's peers in one query. Sector matching ignores case.
// The set's as-of date is the most recent as-of date among its rows.
func (r *ComparablesRepository) GetSet(ctx context.Context, sector string) (*domain.ComparableSet, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+comparablesColumns+" FROM comparables WHERE lower(sector) = lower(?) ORDER BY ticker", sector)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparables for %s: %w", sector, err)
	}
	defer rows.Close()

	set := &domain.ComparableSet{Sector: sector}
	for rows.Next() {
		c, asOf, err := scanComparable(rows)
		if err != nil {
			return nil, err
		}
		if asOf.After(set.AsOfDate) {
			set.AsOfDate = asOf
		}
		set.Companies = append(set.Companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comparables: %w", err)
	}

	if len(set.Companies) == 0 {
		return nil, &domain.NotFoundError{Resource: "comparables for sector", ID: sector}
	}
	set.Sector = set.Companies[0].Sector
	if len(set.Companies) < r.minComparables {
		return set, &domain.InsufficientDataError{
			Subject: "comparables for sector " + sector,
			Reason:  fmt.Sprintf("found %d comparables, need %d", len(set.Companies), r.minComparables),
		}
	}
	return set, nil
}

// ListSectors returns each sector with its comparable count.
func (r *ComparablesRepository) ListSectors(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT sector, COUNT(*) FROM comparables GROUP BY sector ORDER BY sector")
	if err != nil {
		return nil, fmt.Errorf("failed to query sectors: %w", err)
	}
	defer rows.Close()

	sectors := make(map[string]int)
	for rows.Next() {
		var sector string
		var count int
		if err := rows.Scan(&sector, &count); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		sectors[sector] = count
	}
	return sectors, rows.Err()
}

// Upsert validates and stores comparables dated asOf, keyed by sector and ticker.
func (r *ComparablesRepository) Upsert(ctx context.Context, asOf domain.Date, companies []domain.ComparableCompany) error {
	if asOf.IsZero() {
		return &domain.ValidationError{
			Message: "invalid comparables",
			Fields:  []domain.FieldError{{Field: "as_of_date", Message: "as-of date is required"}},
		}
	}
	for _, c := range companies {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	err := database.WithRetry(ctx, func() error {
		return database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO comparables (`+comparablesColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(sector, ticker) DO UPDATE SET
					name = excluded.name,
					revenue_ttm = excluded.revenue_ttm,
					enterprise_value = excluded.enterprise_value,
					market_cap = excluded.market_cap,
					revenue_growth_yoy = excluded.revenue_growth_yoy,
					as_of_date = excluded.as_of_date`)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, c := range companies {
				_, err := stmt.ExecContext(ctx,
					strings.ToUpper(c.Ticker), c.Sector, c.Name,
					c.RevenueTTM.String(), c.EnterpriseValue.String(),
					nullableDecimal(c.MarketCap), nullableDecimal(c.RevenueGrowthYoY),
					asOf.String(),
				)
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to upsert comparables: %w", err)
	}

	r.log.Debug().Int("count", len(companies)).Msg("Comparables upserted")
	return nil
}

func scanComparable(rows *sql.Rows) (domain.ComparableCompany, domain.Date, error) {
	var (
		c                        domain.ComparableCompany
		revenue, ev, asOf        string
		marketCap, revenueGrowth sql.NullString
	)
	if err := rows.Scan(&c.Ticker, &c.Sector, &c.Name, &revenue, &ev, &marketCap, &revenueGrowth, &asOf); err != nil {
		return c, domain.Date{}, fmt.Errorf("failed to scan comparable: %w", err)
	}

	var err error
	if c.RevenueTTM, err = decimal.NewFromString(revenue); err != nil {
		return c, domain.Date{}, fmt.Errorf("comparable %s: invalid revenue: %w", c.Ticker, err)
	}
	if c.EnterpriseValue, err = decimal.NewFromString(ev); err != nil {
		return c, domain.Date{}, fmt.Errorf("comparable %s: invalid enterprise value: %w", c.Ticker, err)
	}
	if c.MarketCap, err = parseNullable(marketCap); err != nil {
		return c, domain.Date{}, fmt.Errorf("comparable %s: invalid market cap: %w", c.Ticker, err)
	}
	if c.RevenueGrowthYoY, err = parseNullable(revenueGrowth); err != nil {
		return c, domain.Date{}, fmt.Errorf("comparable %s: invalid revenue growth: %w", c.Ticker, err)
	}

	date, err := domain.ParseDate(asOf)
	if err != nil {
		return c, domain.Date{}, fmt.Errorf("comparable %s: %w", c.Ticker, err)
	}
	return c, date, nil
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullable(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

var _ domain.ComparablesProvider = (*ComparablesRepository)(nil)
