package methods

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
	"github.com/aristath/vcaudit/pkg/formulas"
)

// Comparables values a company from the median EV/revenue multiple of its public
// peers, discounted for illiquidity by stage.
type Comparables struct {
	cfg vdomain.Config
}

// NewComparables creates the Comparables method.
func NewComparables(cfg vdomain.Config) Method {
	return &Comparables{cfg: cfg}
}

// ID implements Method.
func (m *Comparables) ID() vdomain.MethodID {
	return vdomain.MethodComparables
}

// CheckPrerequisites implements Method.
func (m *Comparables) CheckPrerequisites(in Inputs) *vdomain.MethodSkipped {
	revenue := in.Company.Financials.RevenueTTM
	if revenue == nil {
		return insufficient(m.ID(), "Company has no revenue data (pre-revenue)", "financials.revenue_ttm")
	}
	if !revenue.IsPositive() {
		return insufficient(m.ID(), "Company revenue must be positive", "financials.revenue_ttm")
	}

	sector := in.Company.Company.Sector
	if in.Comparables == nil {
		return insufficient(m.ID(), fmt.Sprintf("No comparable companies available for sector '%s'", sector), "comparables")
	}
	if !strings.EqualFold(in.Comparables.Sector, sector) {
		return insufficient(m.ID(),
			fmt.Sprintf("Comparable set is for sector '%s', company is in '%s'", in.Comparables.Sector, sector),
			"comparables")
	}
	if n := in.Comparables.Len(); n < m.cfg.MinComparables {
		return insufficient(m.ID(),
			fmt.Sprintf("Insufficient comparables for sector '%s'. Found %d, need %d", sector, n, m.cfg.MinComparables),
			"comparables")
	}
	for _, c := range in.Comparables.Companies {
		if !c.RevenueTTM.IsPositive() {
			return insufficient(m.ID(),
				fmt.Sprintf("Comparable %s has no positive revenue", c.Ticker),
				"comparables."+c.Ticker+".revenue_ttm")
		}
	}
	if _, ok := m.cfg.StageDiscount(in.Company.Company.Stage); !ok {
		return insufficient(m.ID(),
			fmt.Sprintf("No private company discount configured for stage '%s'", in.Company.Company.Stage),
			"company.stage")
	}
	return nil
}

// Execute implements Method.
func (m *Comparables) Execute(in Inputs) (vdomain.MethodResult, error) {
	rec := vdomain.NewRecorder()
	company := in.Company.Company
	financials := in.Company.Financials
	if financials.RevenueTTM == nil || in.Comparables == nil {
		return vdomain.MethodResult{}, m.fail("target_metrics", "missing revenue or comparables")
	}
	revenue := *financials.RevenueTTM

	rec.Step(vdomain.StepTargetMetrics,
		"Target Company Financial Metrics",
		map[string]any{
			"annual_revenue": revenue.String(),
			"revenue_growth": optionalPercent(financials.RevenueGrowthYoY),
			"gross_margin":   optionalPercent(financials.GrossMargin),
			"sector":         company.Sector,
			"stage":          string(company.Stage),
		},
		"",
		fmt.Sprintf("Annual revenue of %s in the %s sector", formulas.FormatCurrency(revenue), company.Sector),
	)

	// Peer multiples
	comps := in.Comparables.Companies
	multiples := make([]decimal.Decimal, len(comps))
	rows := make([]map[string]any, len(comps))
	for i, c := range comps {
		multiples[i] = c.Multiple()
		rows[i] = map[string]any{
			"ticker":           c.Ticker,
			"name":             c.Name,
			"revenue":          c.RevenueTTM.String(),
			"enterprise_value": c.EnterpriseValue.String(),
			"revenue_multiple": multiples[i].String(),
		}
	}
	rec.Step(vdomain.StepComparableCompanies,
		"Comparable Public Companies",
		map[string]any{
			"sector":     in.Comparables.Sector,
			"data_as_of": in.Comparables.AsOfDate.String(),
			"count":      len(comps),
			"companies":  rows,
		},
		"EV / trailing revenue for each comparable",
		fmt.Sprintf("Found %d comparable public companies", len(comps)),
	)

	// Multiple statistics
	median, err := formulas.Median(multiples)
	if err != nil {
		return vdomain.MethodResult{}, m.fail("multiple_statistics", err.Error())
	}
	p25, err := formulas.Percentile(multiples, 25)
	if err != nil {
		return vdomain.MethodResult{}, m.fail("multiple_statistics", err.Error())
	}
	p75, err := formulas.Percentile(multiples, 75)
	if err != nil {
		return vdomain.MethodResult{}, m.fail("multiple_statistics", err.Error())
	}
	lowest, _ := formulas.Min(multiples)
	highest, _ := formulas.Max(multiples)
	cv, err := formulas.CoefficientOfVariation(multiples)
	if err != nil {
		return vdomain.MethodResult{}, m.fail("multiple_statistics", err.Error())
	}

	rec.Step(vdomain.StepMultipleStatistics,
		"Revenue Multiple Analysis",
		map[string]any{
			"count":                    len(multiples),
			"lowest":                   lowest.String(),
			"percentile_25":            p25.String(),
			"median":                   median.String(),
			"percentile_75":            p75.String(),
			"highest":                  highest.String(),
			"coefficient_of_variation": cv.StringFixed(4),
			"interpolation":            "linear between order statistics, rank = p/100 × (n − 1)",
		},
		fmt.Sprintf("Median of %d multiples = %s (range %s to %s)",
			len(multiples), formulas.FormatMultiple(median), formulas.FormatMultiple(lowest), formulas.FormatMultiple(highest)),
		fmt.Sprintf("Using median multiple of %s", formulas.FormatMultiple(median)),
	)

	// Illiquidity discount
	discount, ok := m.cfg.StageDiscount(company.Stage)
	if !ok {
		return vdomain.MethodResult{}, m.fail("private_discount", fmt.Sprintf("no discount for stage %s", company.Stage))
	}
	discounted := median.Mul(one.Sub(discount))
	adjusted := m.floor(discounted)

	rec.Step(vdomain.StepPrivateDiscount,
		"Private Company Discount",
		map[string]any{
			"company_stage":       string(company.Stage),
			"public_multiple":     median.String(),
			"discount":            discount.String(),
			"discount_percent":    formulas.FormatPercent(discount, 0),
			"discounted_multiple": discounted.String(),
			"multiple_floor":      m.cfg.MultipleFloor.String(),
			"floor_applied":       !adjusted.Equal(discounted),
			"adjusted_multiple":   adjusted.String(),
		},
		fmt.Sprintf("%s × (1 − %s) = %s, floored at %s",
			median.String(), discount.String(), discounted.String(), formulas.FormatMultiple(m.cfg.MultipleFloor)),
		fmt.Sprintf("Adjusted multiple: %s", formulas.FormatMultiple(adjusted)),
	)

	// Base value
	value := revenue.Mul(adjusted)
	rec.Step(vdomain.StepFinalCalculation,
		"Final Valuation Calculation",
		map[string]any{
			"revenue":    revenue.String(),
			"multiple":   adjusted.String(),
			"base_value": value.String(),
		},
		fmt.Sprintf("%s revenue × %s multiple", formulas.FormatCurrency(revenue), formulas.FormatMultiple(adjusted)),
		fmt.Sprintf("Estimated value: %s", formulas.FormatCurrency(value)),
	)

	// Range from the discounted quartiles
	lowMultiple := m.floor(p25.Mul(one.Sub(discount)))
	highMultiple := m.floor(p75.Mul(one.Sub(discount)))
	rangeLow := revenue.Mul(lowMultiple)
	rangeHigh := revenue.Mul(highMultiple)
	rec.Step(vdomain.StepValueRange,
		"Value Range from Interquartile Multiples",
		map[string]any{
			"low_multiple":  lowMultiple.String(),
			"high_multiple": highMultiple.String(),
			"range_low":     rangeLow.String(),
			"range_high":    rangeHigh.String(),
		},
		fmt.Sprintf("%s revenue × [%s, %s]", formulas.FormatCurrency(revenue),
			formulas.FormatMultiple(lowMultiple), formulas.FormatMultiple(highMultiple)),
		fmt.Sprintf("Range: %s to %s", formulas.FormatCurrency(rangeLow), formulas.FormatCurrency(rangeHigh)),
	)

	value, factor := applyAdjustments(rec, value, in.Company.Adjustments)
	rangeLow = formulas.RoundHalfUp(rangeLow.Mul(factor), m.cfg.ValueDecimalPlaces)
	rangeHigh = formulas.RoundHalfUp(rangeHigh.Mul(factor), m.cfg.ValueDecimalPlaces)

	confidence, explanation := m.confidence(multiples, cv)
	return vdomain.MethodResult{
		Method:                m.ID(),
		Value:                 formulas.RoundHalfUp(value, m.cfg.ValueDecimalPlaces),
		RangeLow:              &rangeLow,
		RangeHigh:             &rangeHigh,
		Confidence:            confidence,
		ConfidenceExplanation: explanation,
		AuditTrail:            rec.Steps(),
		Warnings:              rec.Warnings(),
	}, nil
}

func (m *Comparables) floor(multiple decimal.Decimal) decimal.Decimal {
	if multiple.LessThan(m.cfg.MultipleFloor) {
		return m.cfg.MultipleFloor
	}
	return multiple
}

// confidence grades dispersion with an exact CV comparison; cv is only for the explanation.
func (m *Comparables) confidence(multiples []decimal.Decimal, cv decimal.Decimal) (vdomain.Confidence, string) {
	n := len(multiples)
	enough := n >= m.cfg.CompsHighConfidenceMinCount
	detail := fmt.Sprintf("%d comparables, coefficient of variation %s (high < %s, medium < %s, at least %d comparables)",
		n, cv.StringFixed(2), m.cfg.CompsHighCV, m.cfg.CompsMediumCV, m.cfg.CompsHighConfidenceMinCount)

	switch {
	case enough && formulas.DispersionBelow(multiples, m.cfg.CompsHighCV):
		return vdomain.ConfidenceHigh, "Tightly clustered peer multiples: " + detail + "."
	case enough && formulas.DispersionBelow(multiples, m.cfg.CompsMediumCV):
		return vdomain.ConfidenceMedium, "Moderately dispersed peer multiples: " + detail + "."
	case !enough:
		return vdomain.ConfidenceLow, "Too few comparables for a reliable multiple: " + detail + "."
	default:
		return vdomain.ConfidenceLow, "Widely dispersed peer multiples: " + detail + "."
	}
}

func (m *Comparables) fail(step, reason string) error {
	return &domain.CalculationError{Method: string(m.ID()), Step: step, Reason: reason}
}

func optionalPercent(d *decimal.Decimal) string {
	if d == nil {
		return "Not available"
	}
	return formulas.FormatPercent(*d, 0)
}

var _ Method = (*Comparables)(nil)
