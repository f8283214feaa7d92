package methods

import (
	"fmt"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
	"github.com/aristath/vcaudit/pkg/formulas"
)

// LastRound values a company from its latest priced round, moved with a market
// index scaled by beta.
type LastRound struct {
	cfg vdomain.Config
}

// NewLastRound creates the Last-Round method.
func NewLastRound(cfg vdomain.Config) Method {
	return &LastRound{cfg: cfg}
}

// ID implements Method.
func (m *LastRound) ID() vdomain.MethodID {
	return vdomain.MethodLastRound
}

// CheckPrerequisites implements Method.
func (m *LastRound) CheckPrerequisites(in Inputs) *vdomain.MethodSkipped {
	round := in.Company.LastRound
	if round == nil {
		return insufficient(m.ID(), "No last funding round data available", "last_round")
	}
	if round.Date.After(in.AsOf) {
		return insufficient(m.ID(),
			fmt.Sprintf("Last round date %s is after the valuation date %s", round.Date, in.AsOf),
			"last_round.date")
	}

	age := domain.MonthsBetween(round.Date, in.AsOf)
	if age > m.cfg.MaxRoundAgeMonths {
		return insufficient(m.ID(),
			fmt.Sprintf("Last round is too old (%d months). Maximum allowed: %d months", age, m.cfg.MaxRoundAgeMonths),
			"last_round.date")
	}

	if in.Index == nil || len(in.Index.Points) == 0 {
		return insufficient(m.ID(), "No market index data available", "market_index")
	}

	var missing []string
	if _, ok := in.Index.ValueAtOrBefore(round.Date); !ok {
		missing = append(missing, "index_value_at_round_date")
	}
	if _, ok := in.Index.ValueAtOrBefore(in.AsOf); !ok {
		missing = append(missing, "index_value_at_valuation_date")
	}
	if len(missing) > 0 {
		return insufficient(m.ID(),
			fmt.Sprintf("%s index has no value on or before the required dates", in.Index.Name),
			missing...)
	}
	return nil
}

// Execute implements Method.
func (m *LastRound) Execute(in Inputs) (vdomain.MethodResult, error) {
	rec := vdomain.NewRecorder()
	round := in.Company.LastRound
	if round == nil || in.Index == nil {
		return vdomain.MethodResult{}, m.fail("funding_round", "missing round or index")
	}
	age := domain.MonthsBetween(round.Date, in.AsOf)

	// Anchor
	anchor := round.PostMoney
	lead := round.LeadInvestor
	if lead == "" {
		lead = "Not disclosed"
	}
	rec.Step(vdomain.StepFundingRound,
		"Starting Point: Last Funding Round",
		map[string]any{
			"round_date":           round.Date.String(),
			"round_age_months":     age,
			"pre_money_valuation":  round.PreMoney.String(),
			"amount_raised":        round.AmountRaised.String(),
			"post_money_valuation": round.PostMoney.String(),
			"lead_investor":        lead,
		},
		fmt.Sprintf("%s pre-money + %s raised = %s post-money",
			formulas.FormatCurrency(round.PreMoney),
			formulas.FormatCurrency(round.AmountRaised),
			formulas.FormatCurrency(round.PostMoney)),
		fmt.Sprintf("Starting valuation: %s", formulas.FormatCurrency(anchor)),
	)

	if age > m.cfg.StaleRoundThresholdMonths {
		rec.Warn("This funding round is %d months old. Market conditions may have changed significantly since then.", age)
	}

	// Market adjustment
	atRound, ok := in.Index.ValueAtOrBefore(round.Date)
	if !ok {
		return vdomain.MethodResult{}, m.fail("market_adjustment", "no index value at round date")
	}
	atValuation, ok := in.Index.ValueAtOrBefore(in.AsOf)
	if !ok {
		return vdomain.MethodResult{}, m.fail("market_adjustment", "no index value at valuation date")
	}
	if !atRound.Value.IsPositive() {
		return vdomain.MethodResult{}, m.fail("market_adjustment", fmt.Sprintf("index value at round date is %s", atRound.Value))
	}

	marketChange := formulas.Div(atValuation.Value.Sub(atRound.Value), atRound.Value)
	adjustedChange := marketChange.Mul(m.cfg.Beta)
	value := anchor.Mul(one.Add(adjustedChange))
	if !value.IsPositive() {
		return vdomain.MethodResult{}, m.fail("market_adjustment",
			fmt.Sprintf("market-adjusted value %s is not positive", value))
	}

	direction := "remained flat"
	switch marketChange.Sign() {
	case 1:
		direction = "increased"
	case -1:
		direction = "decreased"
	}
	rec.Step(vdomain.StepMarketAdjustment,
		"Market Adjustment: How Has the Market Moved?",
		map[string]any{
			"index_name":              in.Index.Name,
			"round_date":              round.Date.String(),
			"round_index_date":        atRound.Date.String(),
			"round_index_value":       atRound.Value.String(),
			"valuation_date":          in.AsOf.String(),
			"valuation_index_date":    atValuation.Date.String(),
			"valuation_index_value":   atValuation.Value.String(),
			"market_change":           marketChange.String(),
			"market_change_percent":   formulas.FormatSignedPercent(marketChange, 1),
			"market_direction":        direction,
			"beta":                    m.cfg.Beta.String(),
			"adjusted_change":         adjustedChange.String(),
			"adjusted_change_percent": formulas.FormatSignedPercent(adjustedChange, 1),
			"value_before":            anchor.String(),
			"value_after":             value.String(),
		},
		fmt.Sprintf("(%s − %s) / %s = %s; × %s beta = %s; %s × (1 + %s) = %s",
			atValuation.Value, atRound.Value, atRound.Value, marketChange.StringFixed(4),
			m.cfg.Beta, adjustedChange.StringFixed(4),
			anchor, adjustedChange.StringFixed(4), value.StringFixed(2)),
		fmt.Sprintf("Market-adjusted valuation: %s", formulas.FormatCurrency(value)),
	)

	// Company adjustments
	value, _ = applyAdjustments(rec, value, in.Company.Adjustments)
	if !value.IsPositive() {
		return vdomain.MethodResult{}, m.fail("company_adjustment", fmt.Sprintf("adjusted value %s is not positive", value))
	}

	confidence, explanation := m.confidence(age)
	return vdomain.MethodResult{
		Method:                m.ID(),
		Value:                 formulas.RoundHalfUp(value, m.cfg.ValueDecimalPlaces),
		Confidence:            confidence,
		ConfidenceExplanation: explanation,
		AuditTrail:            rec.Steps(),
		Warnings:              rec.Warnings(),
	}, nil
}

func (m *LastRound) confidence(age int) (vdomain.Confidence, string) {
	thresholds := fmt.Sprintf("high ≤ %d months, medium ≤ %d months", m.cfg.HighConfidenceMaxAgeMonths, m.cfg.MediumConfidenceMaxAgeMonths)

	switch {
	case age <= m.cfg.HighConfidenceMaxAgeMonths:
		return vdomain.ConfidenceHigh, fmt.Sprintf("Funding round is %d months old (%s): recent transaction evidence.", age, thresholds)
	case age <= m.cfg.MediumConfidenceMaxAgeMonths:
		return vdomain.ConfidenceMedium, fmt.Sprintf("Funding round is %d months old (%s): transaction evidence is ageing.", age, thresholds)
	default:
		return vdomain.ConfidenceLow, fmt.Sprintf("Funding round is %d months old (%s): transaction evidence is dated.", age, thresholds)
	}
}

func (m *LastRound) fail(step, reason string) error {
	return &domain.CalculationError{Method: string(m.ID()), Step: step, Reason: reason}
}

var _ Method = (*LastRound)(nil)
