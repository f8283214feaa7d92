package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	basedomain "github.com/aristath/vcaudit/internal/domain"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 18, cfg.MaxRoundAgeMonths)
	assert.Equal(t, 6, cfg.HighConfidenceMaxAgeMonths)
	assert.Equal(t, 12, cfg.MediumConfidenceMaxAgeMonths)
	assert.Equal(t, 12, cfg.StaleRoundThresholdMonths)
	assert.Equal(t, "1.5", cfg.Beta.String())
	assert.Equal(t, 3, cfg.MinComparables)
	assert.Equal(t, "0.3", cfg.SpreadWarningThreshold.String())

	discount, ok := cfg.StageDiscount(basedomain.StageSeriesB)
	require.True(t, ok)
	assert.Equal(t, "0.25", discount.String())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"non-positive max age", func(c *Config) { c.MaxRoundAgeMonths = 0 }, "max_round_age_months"},
		{"medium below high", func(c *Config) { c.MediumConfidenceMaxAgeMonths = 3 }, "medium_confidence_max_age_months"},
		{"zero beta", func(c *Config) { c.Beta = decimal.Zero }, "beta"},
		{"no comparables", func(c *Config) { c.MinComparables = 0 }, "min_comparables"},
		{"zero floor", func(c *Config) { c.MultipleFloor = decimal.Zero }, "multiple_floor"},
		{"medium cv not above high", func(c *Config) { c.CompsMediumCV = decimal.RequireFromString("0.2") }, "comps_medium_cv"},
		{"zero spread threshold", func(c *Config) { c.SpreadWarningThreshold = decimal.Zero }, "spread_warning_threshold"},
		{"too many decimal places", func(c *Config) { c.ValueDecimalPlaces = 12 }, "value_decimal_places"},
		{"missing stage", func(c *Config) { delete(c.StageDiscounts, basedomain.StageGrowth) }, "stage_discounts.growth"},
		{"discount of one", func(c *Config) { c.StageDiscounts[basedomain.StageSeed] = decimal.NewFromInt(1) }, "stage_discounts.seed"},
		{"increasing discount", func(c *Config) {
			c.StageDiscounts[basedomain.StageSeriesC] = decimal.RequireFromString("0.28")
		}, "stage_discounts.series_c"},
		{"unknown stage", func(c *Config) { c.StageDiscounts["pre_seed"] = decimal.RequireFromString("0.4") }, "stage_discounts.pre_seed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var ve *basedomain.ValidationError
			require.ErrorAs(t, err, &ve)

			var fields []string
			for _, f := range ve.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.StageDiscounts[basedomain.StageSeed] = decimal.RequireFromString("0.5")

	discount, _ := cfg.StageDiscount(basedomain.StageSeed)
	assert.Equal(t, "0.35", discount.String())
}

func TestConfig_Snapshot(t *testing.T) {
	snapshot := DefaultConfig().Snapshot()

	assert.Equal(t, "18", snapshot["max_round_age_months"])
	assert.Equal(t, "1.5", snapshot["beta"])
	assert.Equal(t, "0.35", snapshot["stage_discount.seed"])
	assert.Equal(t, "0.15", snapshot["stage_discount.growth"])
	assert.Equal(t, "2", snapshot["value_decimal_places"])
	assert.Len(t, snapshot, 17)
}

func TestConfig_SnapshotChangesWithAnyParameter(t *testing.T) {
	base := DefaultConfig().Snapshot()

	changed := DefaultConfig()
	changed.CompsHighCV = decimal.RequireFromString("0.25")

	assert.NotEqual(t, base, changed.Snapshot())
}
