package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	basedomain "github.com/aristath/vcaudit/internal/domain"
)

// MethodResult is the output of one successfully executed method.
type MethodResult struct {
	RangeLow              *decimal.Decimal `json:"range_low,omitempty"`
	RangeHigh             *decimal.Decimal `json:"range_high,omitempty"`
	Method                MethodID         `json:"method"`
	Confidence            Confidence       `json:"confidence"`
	ConfidenceExplanation string           `json:"confidence_explanation"`
	Value                 decimal.Decimal  `json:"value"`
	AuditTrail            []AuditStep      `json:"audit_trail"`
	Warnings              []string         `json:"warnings"`
}

// MethodSkipped records why a method produced no value. Code is INSUFFICIENT_DATA
// for unmet preconditions and CALCULATION for a fault during execution.
type MethodSkipped struct {
	Method        MethodID             `json:"method"`
	Reason        string               `json:"reason"`
	Code          basedomain.ErrorCode `json:"code"`
	MissingFields []string             `json:"missing_fields,omitempty"`
}

// OutcomeStatus tags an Outcome.
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

// Outcome is the result of attempting one method: exactly one of Result or
// Skipped is set, according to Status.
type Outcome struct {
	Result  *MethodResult
	Skipped *MethodSkipped
	Status  OutcomeStatus
}

// Succeeded wraps a method result.
func Succeeded(result MethodResult) Outcome {
	return Outcome{Status: OutcomeSucceeded, Result: &result}
}

// Skipped wraps a skip record.
func Skipped(skip MethodSkipped) Outcome {
	return Outcome{Status: OutcomeSkipped, Skipped: &skip}
}

// ComparisonItem is one method's line in the cross-method comparison.
type ComparisonItem struct {
	Method     MethodID        `json:"method"`
	Confidence Confidence      `json:"confidence"`
	Value      decimal.Decimal `json:"value"`
	IsPrimary  bool            `json:"is_primary"`
}

// Comparison is built when at least two methods succeeded.
type Comparison struct {
	SpreadWarning  string           `json:"spread_warning,omitempty"`
	SpreadPercent  decimal.Decimal  `json:"spread_percent"`
	Methods        []ComparisonItem `json:"methods"`
	SelectionSteps []string         `json:"selection_steps"`
}

// MarshalJSON writes the spread with the single decimal it is displayed with,
// so 50 serializes as "50.0".
func (c Comparison) MarshalJSON() ([]byte, error) {
	type plain Comparison
	return json.Marshal(struct {
		plain
		SpreadPercent string `json:"spread_percent"`
	}{plain: plain(c), SpreadPercent: c.SpreadPercent.StringFixed(1)})
}

// Summary is the executive view of a valuation.
type Summary struct {
	PrimaryMethod     MethodID        `json:"primary_method"`
	OverallConfidence Confidence      `json:"overall_confidence"`
	SummaryText       string          `json:"summary_text"`
	SelectionReason   string          `json:"selection_reason"`
	PrimaryValue      decimal.Decimal `json:"primary_value"`
	ValueRangeLow     decimal.Decimal `json:"value_range_low"`
	ValueRangeHigh    decimal.Decimal `json:"value_range_high"`
}

// ValuationResult is the composite, self-describing output of one engine run.
type ValuationResult struct {
	CreatedAt         time.Time         `json:"created_at"`
	AsOfDate          basedomain.Date   `json:"as_of_date"`
	Comparison        *Comparison       `json:"comparison,omitempty"`
	ConfigSnapshot    map[string]string `json:"config_snapshot"`
	CompanyID         string            `json:"company_id"`
	CompanyName       string            `json:"company_name"`
	IndexName         string            `json:"index_name,omitempty"`
	Sector            string            `json:"sector"`
	InputHash         string            `json:"input_hash"`
	ReferenceDataHash string            `json:"reference_data_hash"`
	Summary           Summary           `json:"summary"`
	MethodResults     []MethodResult    `json:"method_results"`
	SkippedMethods    []MethodSkipped   `json:"skipped_methods"`
	ID                uuid.UUID         `json:"id"`
}

// MethodResult returns the result of the given method, if it succeeded.
func (r *ValuationResult) MethodResult(id MethodID) (MethodResult, bool) {
	for _, mr := range r.MethodResults {
		if mr.Method == id {
			return mr, true
		}
	}
	return MethodResult{}, false
}

// NoValidMethodsError is returned when no method could produce a value.
type NoValidMethodsError struct {
	CompanyID string
	Skipped   []MethodSkipped
}

func (e *NoValidMethodsError) Error() string {
	reasons := make([]string, len(e.Skipped))
	for i, s := range e.Skipped {
		reasons[i] = fmt.Sprintf("%s: %s", s.Method, s.Reason)
	}
	return fmt.Sprintf("no valid valuation methods for company %s (%s)", e.CompanyID, strings.Join(reasons, "; "))
}

func (e *NoValidMethodsError) Code() basedomain.ErrorCode { return basedomain.CodeNoValidMethods }
func (e *NoValidMethodsError) ErrorType() string          { return "NoValidMethodsError" }

func (e *NoValidMethodsError) Details() map[string]any {
	reasons := make(map[string]string, len(e.Skipped))
	for _, s := range e.Skipped {
		reasons[string(s.Method)] = s.Reason
	}
	skipped := make([]MethodSkipped, len(e.Skipped))
	copy(skipped, e.Skipped)

	return map[string]any{
		"company_id":   e.CompanyID,
		"skip_reasons": reasons,
		"skipped":      skipped,
	}
}
