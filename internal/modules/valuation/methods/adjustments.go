package methods

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
	"github.com/aristath/vcaudit/pkg/formulas"
)

var one = decimal.NewFromInt(1)

// applyAdjustments multiplies value by each adjustment factor in the given order,
// recording one step per adjustment, or a single no_adjustments step when there
// are none. It returns the adjusted value and the combined factor.
func applyAdjustments(rec *vdomain.Recorder, value decimal.Decimal, adjustments []domain.Adjustment) (decimal.Decimal, decimal.Decimal) {
	combined := one
	if len(adjustments) == 0 {
		rec.Step(vdomain.StepNoAdjustments,
			"Company-Specific Adjustments",
			map[string]any{
				"value":            value.String(),
				"total_adjustment": "0%",
			},
			"No company-specific adjustments applied.",
			fmt.Sprintf("Valuation unchanged: %s", formulas.FormatCurrency(value)),
		)
		return value, combined
	}

	for i, adj := range adjustments {
		before := value
		value = value.Mul(adj.Factor)
		combined = combined.Mul(adj.Factor)

		rec.Step(vdomain.StepCompanyAdjustment,
			fmt.Sprintf("Company Adjustment %d of %d: %s", i+1, len(adjustments), adj.Name),
			map[string]any{
				"order":        i + 1,
				"name":         adj.Name,
				"reason":       adj.Reason,
				"factor":       adj.Factor.String(),
				"impact":       formulas.FormatSignedPercent(adj.Factor.Sub(one), 1),
				"value_before": before.String(),
				"value_after":  value.String(),
			},
			fmt.Sprintf("%s × %s = %s", before.String(), adj.Factor.String(), value.String()),
			fmt.Sprintf("Adjusted valuation: %s", formulas.FormatCurrency(value)),
		)
	}
	return value, combined
}
