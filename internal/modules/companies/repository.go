// Package companies stores the private companies under valuation.
package companies

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/database"
	"github.com/aristath/vcaudit/internal/domain"
)

// Repository handles company persistence in the reference database.
// It implements domain.CompanyProvider.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewRepository creates a new company repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "companies").Logger(),
		now: time.Now,
	}
}

// Get returns the company's full valuation input.
func (r *Repository) Get(ctx context.Context, id string) (domain.CompanyData, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, "SELECT data_json FROM companies WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CompanyData{}, &domain.NotFoundError{Resource: "company", ID: id}
	}
	if err != nil {
		return domain.CompanyData{}, fmt.Errorf("failed to query company %s: %w", id, err)
	}

	var data domain.CompanyData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return domain.CompanyData{}, fmt.Errorf("failed to decode company %s: %w", id, err)
	}
	return data, nil
}

// List returns every company ordered by name.
func (r *Repository) List(ctx context.Context) ([]domain.CompanyData, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT data_json FROM companies ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	companies := make([]domain.CompanyData, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		var data domain.CompanyData
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("failed to decode company: %w", err)
		}
		companies = append(companies, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}
	return companies, nil
}

// IDs returns every company id in id order.
func (r *Repository) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM companies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query company ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert validates and stores a company, replacing any previous version.
func (r *Repository) Upsert(ctx context.Context, data domain.CompanyData) error {
	if err := data.Validate(domain.Date{}); err != nil {
		return err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode company %s: %w", data.Company.ID, err)
	}

	var founded any
	if data.Company.FoundedDate != nil {
		founded = data.Company.FoundedDate.String()
	}

	err = database.WithRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO companies (id, name, sector, stage, founded_date, data_json, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				sector = excluded.sector,
				stage = excluded.stage,
				founded_date = excluded.founded_date,
				data_json = excluded.data_json,
				updated_at = excluded.updated_at`,
			data.Company.ID, data.Company.Name, data.Company.Sector, string(data.Company.Stage),
			founded, string(raw), r.now().Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert company %s: %w", data.Company.ID, err)
	}

	r.log.Debug().Str("company_id", data.Company.ID).Msg("Company upserted")
	return nil
}

// Delete removes a company. Missing companies are reported as NotFound.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM companies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete company %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Resource: "company", ID: id}
	}
	return nil
}

var _ domain.CompanyProvider = (*Repository)(nil)
