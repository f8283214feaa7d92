// Package domain provides the valuation input model shared by the engine,
// the reference data repositories and the HTTP layer.
package domain

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aristath/vcaudit/pkg/formulas"
)

// Stage is a company's funding stage
type Stage string

const (
	StageSeed    Stage = "seed"
	StageSeriesA Stage = "series_a"
	StageSeriesB Stage = "series_b"
	StageSeriesC Stage = "series_c"
	StageGrowth  Stage = "growth"
)

// Stages lists every known stage from earliest to latest.
var Stages = []Stage{StageSeed, StageSeriesA, StageSeriesB, StageSeriesC, StageGrowth}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}

// Company is the identity part of a portfolio company.
type Company struct {
	FoundedDate *Date  `json:"founded_date,omitempty"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Sector      string `json:"sector"`
	Stage       Stage  `json:"stage"`
}

// Financials holds optional operating metrics; pre-revenue companies leave revenue nil.
type Financials struct {
	RevenueTTM       *decimal.Decimal `json:"revenue_ttm,omitempty"`
	RevenueGrowthYoY *decimal.Decimal `json:"revenue_growth_yoy,omitempty"`
	GrossMargin      *decimal.Decimal `json:"gross_margin,omitempty"`
	BurnRate         *decimal.Decimal `json:"burn_rate,omitempty"`
	RunwayMonths     *int             `json:"runway_months,omitempty"`
}

// FundingRound describes the most recent priced round.
type FundingRound struct {
	Date         Date            `json:"date"`
	PreMoney     decimal.Decimal `json:"valuation_pre"`
	PostMoney    decimal.Decimal `json:"valuation_post"`
	AmountRaised decimal.Decimal `json:"amount_raised"`
	LeadInvestor string          `json:"lead_investor,omitempty"`
}

// Adjustment is a named multiplicative factor applied after a method's base value
// (1.0 = no change).
type Adjustment struct {
	Name   string          `json:"name"`
	Factor decimal.Decimal `json:"factor"`
	Reason string          `json:"reason"`
}

// CompanyData is the complete, immutable input for one company's valuation.
type CompanyData struct {
	LastRound   *FundingRound `json:"last_round,omitempty"`
	Company     Company       `json:"company"`
	Financials  Financials    `json:"financials"`
	Adjustments []Adjustment  `json:"adjustments"`
}

// HasRevenue reports whether trailing revenue is known and positive.
func (c CompanyData) HasRevenue() bool {
	return c.Financials.RevenueTTM != nil && c.Financials.RevenueTTM.IsPositive()
}

// IndexPoint is one observation of a market index.
type IndexPoint struct {
	Date  Date            `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// MarketIndex is a named series of index points sorted by date.
type MarketIndex struct {
	Name   string       `json:"name"`
	Points []IndexPoint `json:"points"`
}

// NewMarketIndex builds an index from points in any order. The input slice is not modified.
func NewMarketIndex(name string, points []IndexPoint) *MarketIndex {
	sorted := make([]IndexPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return &MarketIndex{Name: name, Points: sorted}
}

// ValueAtOrBefore returns the latest point dated on or before date.
func (m *MarketIndex) ValueAtOrBefore(date Date) (IndexPoint, bool) {
	if m == nil || len(m.Points) == 0 {
		return IndexPoint{}, false
	}

	// First index strictly after date; the point before it is the answer.
	i := sort.Search(len(m.Points), func(i int) bool {
		return m.Points[i].Date.After(date)
	})
	if i == 0 {
		return IndexPoint{}, false
	}
	return m.Points[i-1], true
}

// Latest returns the most recent point.
func (m *MarketIndex) Latest() (IndexPoint, bool) {
	if m == nil || len(m.Points) == 0 {
		return IndexPoint{}, false
	}
	return m.Points[len(m.Points)-1], true
}

// ComparableCompany is a public peer used by the comparables method.
type ComparableCompany struct {
	MarketCap        *decimal.Decimal `json:"market_cap,omitempty"`
	RevenueGrowthYoY *decimal.Decimal `json:"revenue_growth_yoy,omitempty"`
	Ticker           string           `json:"ticker"`
	Name             string           `json:"name"`
	Sector           string           `json:"sector"`
	RevenueTTM       decimal.Decimal  `json:"revenue_ttm"`
	EnterpriseValue  decimal.Decimal  `json:"enterprise_value"`
}

// Multiple returns EV / trailing revenue, or zero when revenue is not positive.
func (c ComparableCompany) Multiple() decimal.Decimal {
	if !c.RevenueTTM.IsPositive() {
		return decimal.Zero
	}
	return formulas.Div(c.EnterpriseValue, c.RevenueTTM)
}

// ComparableSet is the sector-scoped peer group for one valuation.
type ComparableSet struct {
	AsOfDate  Date                `json:"as_of_date"`
	Sector    string              `json:"sector"`
	Companies []ComparableCompany `json:"companies"`
}

// Len returns the number of comparables; a nil set has none.
func (s *ComparableSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Companies)
}

// Multiples returns the EV/revenue multiple of each comparable in set order.
func (s *ComparableSet) Multiples() []decimal.Decimal {
	if s == nil {
		return nil
	}
	out := make([]decimal.Decimal, len(s.Companies))
	for i, c := range s.Companies {
		out[i] = c.Multiple()
	}
	return out
}
