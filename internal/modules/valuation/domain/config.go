// Package domain holds the valuation engine's own model: configuration, audit
// trail, per-method outcomes and the composite result.
package domain

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	basedomain "github.com/aristath/vcaudit/internal/domain"
)

// Config holds every tunable parameter of a valuation run. Every field is part of
// the result's config snapshot and of the input hash.
//
// StageDiscounts and the confidence thresholds are researched defaults. They can be
// changed through the valuation parameter file at process start, never per request.
type Config struct {
	StageDiscounts map[basedomain.Stage]decimal.Decimal `json:"stage_discounts"`

	// Last-Round
	MaxRoundAgeMonths            int             `json:"max_round_age_months"`
	HighConfidenceMaxAgeMonths   int             `json:"high_confidence_max_age_months"`
	MediumConfidenceMaxAgeMonths int             `json:"medium_confidence_max_age_months"`
	StaleRoundThresholdMonths    int             `json:"stale_round_threshold_months"`
	Beta                         decimal.Decimal `json:"beta"`

	// Comparables
	MinComparables              int             `json:"min_comparables"`
	MultipleFloor               decimal.Decimal `json:"multiple_floor"`
	CompsHighCV                 decimal.Decimal `json:"comps_high_cv"`
	CompsMediumCV               decimal.Decimal `json:"comps_medium_cv"`
	CompsHighConfidenceMinCount int             `json:"comps_high_confidence_min_count"`

	// Reconciliation
	SpreadWarningThreshold decimal.Decimal `json:"spread_warning_threshold"`
	ValueDecimalPlaces     int32           `json:"value_decimal_places"`
}

// DefaultStageDiscounts returns the illiquidity discount per stage, earliest stage largest.
func DefaultStageDiscounts() map[basedomain.Stage]decimal.Decimal {
	return map[basedomain.Stage]decimal.Decimal{
		basedomain.StageSeed:    decimal.RequireFromString("0.35"),
		basedomain.StageSeriesA: decimal.RequireFromString("0.30"),
		basedomain.StageSeriesB: decimal.RequireFromString("0.25"),
		basedomain.StageSeriesC: decimal.RequireFromString("0.20"),
		basedomain.StageGrowth:  decimal.RequireFromString("0.15"),
	}
}

// DefaultConfig returns the default valuation parameters.
func DefaultConfig() Config {
	return Config{
		MaxRoundAgeMonths:            18,
		HighConfidenceMaxAgeMonths:   6,
		MediumConfidenceMaxAgeMonths: 12,
		StaleRoundThresholdMonths:    12,
		Beta:                         decimal.RequireFromString("1.5"),

		MinComparables:              3,
		StageDiscounts:              DefaultStageDiscounts(),
		MultipleFloor:               decimal.RequireFromString("1.0"),
		CompsHighCV:                 decimal.RequireFromString("0.30"),
		CompsMediumCV:               decimal.RequireFromString("0.50"),
		CompsHighConfidenceMinCount: 5,

		SpreadWarningThreshold: decimal.RequireFromString("0.30"),
		ValueDecimalPlaces:     2,
	}
}

// Clone returns a deep copy, so callers can tweak a config without sharing the discount map.
func (c Config) Clone() Config {
	out := c
	out.StageDiscounts = make(map[basedomain.Stage]decimal.Decimal, len(c.StageDiscounts))
	for stage, discount := range c.StageDiscounts {
		out.StageDiscounts[stage] = discount
	}
	return out
}

// StageDiscount returns the discount configured for a stage.
func (c Config) StageDiscount(stage basedomain.Stage) (decimal.Decimal, bool) {
	d, ok := c.StageDiscounts[stage]
	return d, ok
}

// Validate checks ranges and orderings of all parameters.
func (c Config) Validate() error {
	var fields []basedomain.FieldError
	add := func(field, format string, args ...any) {
		fields = append(fields, basedomain.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	one := decimal.NewFromInt(1)

	if c.MaxRoundAgeMonths <= 0 {
		add("max_round_age_months", "must be positive")
	}
	if c.HighConfidenceMaxAgeMonths < 0 {
		add("high_confidence_max_age_months", "must not be negative")
	}
	if c.MediumConfidenceMaxAgeMonths < c.HighConfidenceMaxAgeMonths {
		add("medium_confidence_max_age_months", "must be at least high_confidence_max_age_months")
	}
	if c.StaleRoundThresholdMonths < 0 {
		add("stale_round_threshold_months", "must not be negative")
	}
	if !c.Beta.IsPositive() {
		add("beta", "must be positive")
	}
	if c.MinComparables < 1 {
		add("min_comparables", "must be at least 1")
	}
	if !c.MultipleFloor.IsPositive() {
		add("multiple_floor", "must be positive")
	}
	if !c.CompsHighCV.IsPositive() {
		add("comps_high_cv", "must be positive")
	}
	if !c.CompsMediumCV.GreaterThan(c.CompsHighCV) {
		add("comps_medium_cv", "must be greater than comps_high_cv")
	}
	if c.CompsHighConfidenceMinCount < 1 {
		add("comps_high_confidence_min_count", "must be at least 1")
	}
	if !c.SpreadWarningThreshold.IsPositive() {
		add("spread_warning_threshold", "must be positive")
	}
	if c.ValueDecimalPlaces < 0 || c.ValueDecimalPlaces > 8 {
		add("value_decimal_places", "must be between 0 and 8")
	}

	// Discounts must cover every stage and shrink as companies mature.
	var previous *decimal.Decimal
	for _, stage := range basedomain.Stages {
		discount, ok := c.StageDiscounts[stage]
		if !ok {
			add("stage_discounts."+string(stage), "is required")
			previous = nil
			continue
		}
		if discount.IsNegative() || !discount.LessThan(one) {
			add("stage_discounts."+string(stage), "must be in [0, 1)")
		}
		if previous != nil && discount.GreaterThan(*previous) {
			add("stage_discounts."+string(stage), "must not exceed the discount of an earlier stage")
		}
		d := discount
		previous = &d
	}
	for stage := range c.StageDiscounts {
		if !stage.Valid() {
			add("stage_discounts."+string(stage), "unknown stage")
		}
	}

	if len(fields) > 0 {
		sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
		return &basedomain.ValidationError{Message: "invalid valuation config", Fields: fields}
	}
	return nil
}

// Snapshot flattens the config into string values keyed by parameter name.
// Decimals keep their exact textual form; stage discounts appear as stage_discount.<stage>.
func (c Config) Snapshot() map[string]string {
	snapshot := map[string]string{
		"max_round_age_months":             strconv.Itoa(c.MaxRoundAgeMonths),
		"high_confidence_max_age_months":   strconv.Itoa(c.HighConfidenceMaxAgeMonths),
		"medium_confidence_max_age_months": strconv.Itoa(c.MediumConfidenceMaxAgeMonths),
		"stale_round_threshold_months":     strconv.Itoa(c.StaleRoundThresholdMonths),
		"beta":                             c.Beta.String(),
		"min_comparables":                  strconv.Itoa(c.MinComparables),
		"multiple_floor":                   c.MultipleFloor.String(),
		"comps_high_cv":                    c.CompsHighCV.String(),
		"comps_medium_cv":                  c.CompsMediumCV.String(),
		"comps_high_confidence_min_count":  strconv.Itoa(c.CompsHighConfidenceMinCount),
		"spread_warning_threshold":         c.SpreadWarningThreshold.String(),
		"value_decimal_places":             strconv.Itoa(int(c.ValueDecimalPlaces)),
	}
	for stage, discount := range c.StageDiscounts {
		snapshot["stage_discount."+string(stage)] = discount.String()
	}
	return snapshot
}
