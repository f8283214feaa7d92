package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	postMoneyTolerance = decimal.RequireFromString("0.01")
	maxAdjustment      = decimal.NewFromInt(10)
	one                = decimal.NewFromInt(1)
)

// Validate checks CompanyData at the input boundary and reports every failing field.
// A non-zero asOf additionally rejects a last round dated after it.
func (c CompanyData) Validate(asOf Date) error {
	var fields []FieldError
	add := func(field, format string, args ...any) {
		fields = append(fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Company.ID) == "" {
		add("company.id", "is required")
	}
	if strings.TrimSpace(c.Company.Name) == "" {
		add("company.name", "is required")
	}
	if strings.TrimSpace(c.Company.Sector) == "" {
		add("company.sector", "is required")
	}
	if !c.Company.Stage.Valid() {
		add("company.stage", "unknown stage %q", c.Company.Stage)
	}

	f := c.Financials
	if f.RevenueTTM != nil && f.RevenueTTM.IsNegative() {
		add("financials.revenue_ttm", "must not be negative")
	}
	if f.BurnRate != nil && f.BurnRate.IsNegative() {
		add("financials.burn_rate", "must not be negative")
	}
	if f.GrossMargin != nil && (f.GrossMargin.IsNegative() || f.GrossMargin.GreaterThan(one)) {
		add("financials.gross_margin", "must be between 0 and 1")
	}
	if f.RunwayMonths != nil && *f.RunwayMonths < 0 {
		add("financials.runway_months", "must not be negative")
	}

	if r := c.LastRound; r != nil {
		if r.Date.IsZero() {
			add("last_round.date", "is required")
		} else if !asOf.IsZero() && r.Date.After(asOf) {
			add("last_round.date", "%s is after valuation date %s", r.Date, asOf)
		}
		if !r.PreMoney.IsPositive() {
			add("last_round.valuation_pre", "must be positive")
		}
		if !r.PostMoney.IsPositive() {
			add("last_round.valuation_post", "must be positive")
		}
		if !r.AmountRaised.IsPositive() {
			add("last_round.amount_raised", "must be positive")
		}
		expected := r.PreMoney.Add(r.AmountRaised)
		if r.PostMoney.Sub(expected).Abs().GreaterThan(postMoneyTolerance) {
			add("last_round.valuation_post", "post-money %s must equal pre-money + amount raised (%s)", r.PostMoney, expected)
		}
	}

	for i, adj := range c.Adjustments {
		if strings.TrimSpace(adj.Name) == "" {
			add(fmt.Sprintf("adjustments[%d].name", i), "is required")
		}
		if !adj.Factor.IsPositive() {
			add(fmt.Sprintf("adjustments[%d].factor", i), "must be positive")
		} else if adj.Factor.GreaterThan(maxAdjustment) {
			add(fmt.Sprintf("adjustments[%d].factor", i), "seems unreasonably high (>10x)")
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Message: "invalid company data", Fields: fields}
	}
	return nil
}

// Validate checks a comparable entry before it is stored.
func (c ComparableCompany) Validate() error {
	var fields []FieldError
	if strings.TrimSpace(c.Ticker) == "" {
		fields = append(fields, FieldError{Field: "ticker", Message: "is required"})
	}
	if strings.TrimSpace(c.Sector) == "" {
		fields = append(fields, FieldError{Field: "sector", Message: "is required"})
	}
	if !c.RevenueTTM.IsPositive() {
		fields = append(fields, FieldError{Field: "revenue_ttm", Message: "must be positive"})
	}
	if !c.EnterpriseValue.IsPositive() {
		fields = append(fields, FieldError{Field: "enterprise_value", Message: "must be positive"})
	}
	if len(fields) > 0 {
		return &ValidationError{Message: "invalid comparable company", Fields: fields}
	}
	return nil
}
