package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// PostgresResultStore keeps valuation results in Postgres. The schema is
// applied by database.OpenPostgres.
type PostgresResultStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresResultStore creates a store over an open pool.
func NewPostgresResultStore(pool *pgxpool.Pool, log zerolog.Logger) *PostgresResultStore {
	return &PostgresResultStore{
		pool: pool,
		log:  log.With().Str("repo", "valuations_pg").Logger(),
	}
}

// Save inserts a result.
func (s *PostgresResultStore) Save(ctx context.Context, result *vdomain.ValuationResult) error {
	doc, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode valuation %s: %w", result.ID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO valuations (id, company_id, company_name, as_of_date, primary_method, primary_value,
			overall_confidence, input_hash, result_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.ID, result.CompanyID, result.CompanyName, result.AsOfDate.Time,
		string(result.Summary.PrimaryMethod), result.Summary.PrimaryValue.String(),
		string(result.Summary.OverallConfidence), result.InputHash, doc, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save valuation %s: %w", result.ID, err)
	}

	s.log.Info().
		Str("valuation_id", result.ID.String()).
		Str("company_id", result.CompanyID).
		Msg("Valuation saved")
	return nil
}

// Get loads the full result document.
func (s *PostgresResultStore) Get(ctx context.Context, id uuid.UUID) (*vdomain.ValuationResult, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, "SELECT result_json FROM valuations WHERE id = $1", id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query valuation %s: %w", id, err)
	}
	return decodeResult(string(doc))
}

// List returns result headers, newest first.
func (s *PostgresResultStore) List(ctx context.Context, limit, offset int) ([]SavedValuation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, company_name, as_of_date, primary_method, primary_value::text,
			overall_confidence, input_hash, created_at, archived_at, archive_key
		FROM valuations ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		clampLimit(limit), clampOffset(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to query valuations: %w", err)
	}
	defer rows.Close()

	saved := make([]SavedValuation, 0)
	for rows.Next() {
		var (
			v          SavedValuation
			asOf       time.Time
			method     string
			value      string
			confidence string
			archiveKey *string
		)
		if err := rows.Scan(&v.ID, &v.CompanyID, &v.CompanyName, &asOf, &method, &value,
			&confidence, &v.InputHash, &v.CreatedAt, &v.ArchivedAt, &archiveKey); err != nil {
			return nil, fmt.Errorf("failed to scan valuation: %w", err)
		}
		if v.PrimaryValue, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("invalid primary value %q: %w", value, err)
		}
		v.AsOfDate = domain.DateOf(asOf)
		v.PrimaryMethod = vdomain.MethodID(method)
		v.OverallConfidence = vdomain.Confidence(confidence)
		if archiveKey != nil {
			v.ArchiveKey = *archiveKey
		}
		saved = append(saved, v)
	}
	return saved, rows.Err()
}

// Delete removes a stored result.
func (s *PostgresResultStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM valuations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete valuation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// ListUnarchived returns results without an archive key, oldest first.
func (s *PostgresResultStore) ListUnarchived(ctx context.Context, limit int) ([]*vdomain.ValuationResult, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT result_json FROM valuations WHERE archived_at IS NULL ORDER BY created_at, id LIMIT $1",
		clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query unarchived valuations: %w", err)
	}
	defer rows.Close()

	var results []*vdomain.ValuationResult
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan valuation: %w", err)
		}
		result, err := decodeResult(string(doc))
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// MarkArchived records where a result was archived.
func (s *PostgresResultStore) MarkArchived(ctx context.Context, id uuid.UUID, key string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE valuations SET archived_at = now(), archive_key = $1 WHERE id = $2", key, id)
	if err != nil {
		return fmt.Errorf("failed to mark valuation %s archived: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}
