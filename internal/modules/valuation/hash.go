package valuation

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// InputHash returns the SHA-256 hex digest of the canonical valuation input:
// the company data, the selected index name, the comparables sector, the as-of
// date and every configuration value. Decimals are encoded as normalized
// strings and map keys are sorted, so equal inputs always hash equally.
func InputHash(
	company domain.CompanyData,
	indexName string,
	comparablesSector string,
	asOf domain.Date,
	cfg vdomain.Config,
) (string, error) {
	return digest(map[string]any{
		"company":            canonicalCompany(company),
		"index_name":         indexName,
		"comparables_sector": comparablesSector,
		"as_of_date":         asOf.String(),
		"config":             cfg.Snapshot(),
	})
}

// ReferenceDataHash returns the SHA-256 hex digest of the market index series
// and comparable set supplied to a run. Absent data is encoded as nil.
func ReferenceDataHash(index *domain.MarketIndex, comparables *domain.ComparableSet) (string, error) {
	payload := map[string]any{
		"index":       nil,
		"comparables": nil,
	}

	if index != nil {
		points := make([]any, len(index.Points))
		for i, p := range index.Points {
			points[i] = []string{p.Date.String(), p.Value.String()}
		}
		payload["index"] = map[string]any{
			"name":   index.Name,
			"points": points,
		}
	}

	if comparables != nil {
		companies := make([]any, len(comparables.Companies))
		for i, c := range comparables.Companies {
			companies[i] = map[string]any{
				"ticker":             c.Ticker,
				"name":               c.Name,
				"sector":             c.Sector,
				"revenue_ttm":        c.RevenueTTM.String(),
				"enterprise_value":   c.EnterpriseValue.String(),
				"market_cap":         optionalDecimal(c.MarketCap),
				"revenue_growth_yoy": optionalDecimal(c.RevenueGrowthYoY),
			}
		}
		payload["comparables"] = map[string]any{
			"sector":     comparables.Sector,
			"as_of_date": comparables.AsOfDate.String(),
			"companies":  companies,
		}
	}

	return digest(payload)
}

func canonicalCompany(data domain.CompanyData) map[string]any {
	founded := ""
	if data.Company.FoundedDate != nil {
		founded = data.Company.FoundedDate.String()
	}

	var runway any
	if data.Financials.RunwayMonths != nil {
		runway = int64(*data.Financials.RunwayMonths)
	}

	var lastRound any
	if r := data.LastRound; r != nil {
		lastRound = map[string]any{
			"date":           r.Date.String(),
			"valuation_pre":  r.PreMoney.String(),
			"valuation_post": r.PostMoney.String(),
			"amount_raised":  r.AmountRaised.String(),
			"lead_investor":  r.LeadInvestor,
		}
	}

	adjustments := make([]any, len(data.Adjustments))
	for i, a := range data.Adjustments {
		adjustments[i] = map[string]any{
			"name":   a.Name,
			"factor": a.Factor.String(),
			"reason": a.Reason,
		}
	}

	return map[string]any{
		"company": map[string]any{
			"id":           data.Company.ID,
			"name":         data.Company.Name,
			"sector":       data.Company.Sector,
			"stage":        string(data.Company.Stage),
			"founded_date": founded,
		},
		"financials": map[string]any{
			"revenue_ttm":        optionalDecimal(data.Financials.RevenueTTM),
			"revenue_growth_yoy": optionalDecimal(data.Financials.RevenueGrowthYoY),
			"gross_margin":       optionalDecimal(data.Financials.GrossMargin),
			"burn_rate":          optionalDecimal(data.Financials.BurnRate),
			"runway_months":      runway,
		},
		"last_round":  lastRound,
		"adjustments": adjustments,
	}
}

func optionalDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func digest(payload any) (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(payload); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}
