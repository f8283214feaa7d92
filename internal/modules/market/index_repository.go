// Package market stores and analyses the reference market data the valuation
// methods read: index series and sector comparable sets.
package market

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/vcaudit/internal/database"
	"github.com/aristath/vcaudit/internal/domain"
)

// IndexRepository handles index series in the reference database.
// It implements domain.IndexProvider.
type IndexRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewIndexRepository creates a new index repository
func NewIndexRepository(db *sql.DB, log zerolog.Logger) *IndexRepository {
	return &IndexRepository{
		db:  db,
		log: log.With().Str("repo", "market_index").Logger(),
	}
}

// GetSeries loads the whole series in one query.
func (r *IndexRepository) GetSeries(ctx context.Context, name string) (*domain.MarketIndex, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT date, value FROM index_points WHERE index_name = ? ORDER BY date", name)
	if err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", name, err)
	}
	defer rows.Close()

	var points []domain.IndexPoint
	for rows.Next() {
		var date, value string
		if err := rows.Scan(&date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan index point: %w", err)
		}
		point, err := parsePoint(date, value)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", name, err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index points: %w", err)
	}

	if len(points) == 0 {
		return nil, &domain.NotFoundError{Resource: "market index", ID: name}
	}
	return domain.NewMarketIndex(name, points), nil
}

// ListNames returns every index with at least one point.
func (r *IndexRepository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT index_name FROM index_points ORDER BY index_name")
	if err != nil {
		return nil, fmt.Errorf("failed to query index names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan index name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// UpsertPoints stores points for an index, replacing values on existing dates.
func (r *IndexRepository) UpsertPoints(ctx context.Context, name string, points []domain.IndexPoint) error {
	if name == "" {
		return &domain.ValidationError{
			Message: "invalid index data",
			Fields:  []domain.FieldError{{Field: "name", Message: "index name is required"}},
		}
	}
	for i, p := range points {
		if p.Date.IsZero() || !p.Value.IsPositive() {
			return &domain.ValidationError{
				Message: "invalid index data",
				Fields: []domain.FieldError{{
					Field:   fmt.Sprintf("points[%d]", i),
					Message: "each point needs a date and a positive value",
				}},
			}
		}
	}

	err := database.WithRetry(ctx, func() error {
		return database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO index_points (index_name, date, value) VALUES (?, ?, ?)
				ON CONFLICT(index_name, date) DO UPDATE SET value = excluded.value`)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, p := range points {
				if _, err := stmt.ExecContext(ctx, name, p.Date.String(), p.Value.String()); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to upsert index %s: %w", name, err)
	}

	r.log.Debug().Str("index", name).Int("points", len(points)).Msg("Index points upserted")
	return nil
}

func parsePoint(date, value string) (domain.IndexPoint, error) {
	d, err := domain.ParseDate(date)
	if err != nil {
		return domain.IndexPoint{}, err
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return domain.IndexPoint{}, fmt.Errorf("invalid index value %q: %w", value, err)
	}
	return domain.IndexPoint{Date: d, Value: v}, nil
}

var _ domain.IndexProvider = (*IndexRepository)(nil)
