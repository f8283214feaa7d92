package valuation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/vcaudit/internal/database"
	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

const savedColumns = `id, company_id, company_name, as_of_date, primary_method, primary_value,
overall_confidence, input_hash, created_at, archived_at, archive_key`

// SQLiteResultStore keeps valuation results in the ledger database.
type SQLiteResultStore struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewSQLiteResultStore creates a store over a migrated ledger database.
func NewSQLiteResultStore(db *sql.DB, log zerolog.Logger) *SQLiteResultStore {
	return &SQLiteResultStore{
		db:  db,
		log: log.With().Str("repo", "valuations").Logger(),
		now: time.Now,
	}
}

// Save inserts a result. Results are immutable, so saving an id twice fails.
func (s *SQLiteResultStore) Save(ctx context.Context, result *vdomain.ValuationResult) error {
	doc, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode valuation %s: %w", result.ID, err)
	}

	err = database.WithRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO valuations (id, company_id, company_name, as_of_date, primary_method, primary_value,
				overall_confidence, input_hash, result_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.ID.String(), result.CompanyID, result.CompanyName, result.AsOfDate.String(),
			string(result.Summary.PrimaryMethod), result.Summary.PrimaryValue.String(),
			string(result.Summary.OverallConfidence), result.InputHash, string(doc), result.CreatedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save valuation %s: %w", result.ID, err)
	}

	s.log.Info().
		Str("valuation_id", result.ID.String()).
		Str("company_id", result.CompanyID).
		Str("input_hash", result.InputHash).
		Msg("Valuation saved")
	return nil
}

// Get loads the full result document.
func (s *SQLiteResultStore) Get(ctx context.Context, id uuid.UUID) (*vdomain.ValuationResult, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT result_json FROM valuations WHERE id = ?", id.String()).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query valuation %s: %w", id, err)
	}
	return decodeResult(doc)
}

// List returns result headers, newest first.
func (s *SQLiteResultStore) List(ctx context.Context, limit, offset int) ([]SavedValuation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+savedColumns+" FROM valuations ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		clampLimit(limit), clampOffset(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to query valuations: %w", err)
	}
	defer rows.Close()

	saved := make([]SavedValuation, 0)
	for rows.Next() {
		v, err := scanSaved(rows)
		if err != nil {
			return nil, err
		}
		saved = append(saved, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating valuations: %w", err)
	}
	return saved, nil
}

// Delete removes a stored result.
func (s *SQLiteResultStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM valuations WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete valuation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

// ListUnarchived returns results without an archive key, oldest first.
func (s *SQLiteResultStore) ListUnarchived(ctx context.Context, limit int) ([]*vdomain.ValuationResult, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT result_json FROM valuations WHERE archived_at IS NULL ORDER BY created_at, id LIMIT ?",
		clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query unarchived valuations: %w", err)
	}
	defer rows.Close()

	var results []*vdomain.ValuationResult
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan valuation: %w", err)
		}
		result, err := decodeResult(doc)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// MarkArchived records where a result was archived.
func (s *SQLiteResultStore) MarkArchived(ctx context.Context, id uuid.UUID, key string) error {
	var res sql.Result
	err := database.WithRetry(ctx, func() error {
		var err error
		res, err = s.db.ExecContext(ctx,
			"UPDATE valuations SET archived_at = ?, archive_key = ? WHERE id = ?",
			s.now().Unix(), key, id.String())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to mark valuation %s archived: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

func scanSaved(rows *sql.Rows) (SavedValuation, error) {
	var (
		v                       SavedValuation
		id, asOf, method, value string
		confidence              string
		createdAt               int64
		archivedAt              sql.NullInt64
		archiveKey              sql.NullString
	)
	err := rows.Scan(&id, &v.CompanyID, &v.CompanyName, &asOf, &method, &value,
		&confidence, &v.InputHash, &createdAt, &archivedAt, &archiveKey)
	if err != nil {
		return v, fmt.Errorf("failed to scan valuation: %w", err)
	}

	if v.ID, err = uuid.Parse(id); err != nil {
		return v, fmt.Errorf("invalid valuation id %q: %w", id, err)
	}
	if v.AsOfDate, err = domain.ParseDate(asOf); err != nil {
		return v, err
	}
	if v.PrimaryValue, err = decimal.NewFromString(value); err != nil {
		return v, fmt.Errorf("invalid primary value %q: %w", value, err)
	}
	v.PrimaryMethod = vdomain.MethodID(method)
	v.OverallConfidence = vdomain.Confidence(confidence)
	v.CreatedAt = time.Unix(createdAt, 0).UTC()
	if archivedAt.Valid {
		t := time.Unix(archivedAt.Int64, 0).UTC()
		v.ArchivedAt = &t
	}
	v.ArchiveKey = archiveKey.String
	return v, nil
}

func decodeResult(doc string) (*vdomain.ValuationResult, error) {
	var result vdomain.ValuationResult
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, fmt.Errorf("failed to decode valuation: %w", err)
	}
	return &result, nil
}
