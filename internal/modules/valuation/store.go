package valuation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// SavedValuation is the searchable header of a stored result.
type SavedValuation struct {
	CreatedAt         time.Time          `json:"created_at"`
	ArchivedAt        *time.Time         `json:"archived_at,omitempty"`
	AsOfDate          domain.Date        `json:"as_of_date"`
	CompanyID         string             `json:"company_id"`
	CompanyName       string             `json:"company_name"`
	PrimaryMethod     vdomain.MethodID   `json:"primary_method"`
	OverallConfidence vdomain.Confidence `json:"overall_confidence"`
	InputHash         string             `json:"input_hash"`
	ArchiveKey        string             `json:"archive_key,omitempty"`
	PrimaryValue      decimal.Decimal    `json:"primary_value"`
	ID                uuid.UUID          `json:"id"`
}

// ResultStore persists valuation results. Get and Delete return
// *domain.NotFoundError for unknown ids.
type ResultStore interface {
	Save(ctx context.Context, result *vdomain.ValuationResult) error
	Get(ctx context.Context, id uuid.UUID) (*vdomain.ValuationResult, error)
	List(ctx context.Context, limit, offset int) ([]SavedValuation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListUnarchived returns full results not yet copied to the archive, oldest first.
	ListUnarchived(ctx context.Context, limit int) ([]*vdomain.ValuationResult, error)
	MarkArchived(ctx context.Context, id uuid.UUID, key string) error
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func notFound(id uuid.UUID) error {
	return &domain.NotFoundError{Resource: "valuation", ID: id.String()}
}
