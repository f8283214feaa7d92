package methods

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

var asOf = domain.MustParseDate("2024-06-30")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// roundCompany has a $100 post-money round monthsAgo months before asOf.
func roundCompany(monthsAgo int) domain.CompanyData {
	return domain.CompanyData{
		Company: domain.Company{ID: "acme", Name: "Acme", Sector: "saas", Stage: domain.StageSeriesB},
		LastRound: &domain.FundingRound{
			Date:         domain.Date{Time: asOf.AddDate(0, -monthsAgo, 0)},
			PreMoney:     dec("80"),
			PostMoney:    dec("100"),
			AmountRaised: dec("20"),
			LeadInvestor: "Sequoia",
		},
	}
}

// flatIndex has the same value from two years before asOf onward.
func flatIndex() *domain.MarketIndex {
	return domain.NewMarketIndex("NASDAQ", []domain.IndexPoint{
		{Date: domain.MustParseDate("2022-01-01"), Value: dec("100")},
		{Date: asOf, Value: dec("100")},
	})
}

// comparableSet builds peers with revenue 100 and the given EV/revenue multiples.
func comparableSet(sector string, multiples ...string) *domain.ComparableSet {
	set := &domain.ComparableSet{Sector: sector, AsOfDate: asOf}
	for i, m := range multiples {
		set.Companies = append(set.Companies, domain.ComparableCompany{
			Ticker:          string(rune('A' + i)),
			Name:            "Peer " + string(rune('A'+i)),
			Sector:          sector,
			RevenueTTM:      dec("100"),
			EnterpriseValue: dec(m).Mul(dec("100")),
		})
	}
	return set
}

func revenueCompany(revenue string, stage domain.Stage) domain.CompanyData {
	return domain.CompanyData{
		Company:    domain.Company{ID: "beta", Name: "Beta", Sector: "saas", Stage: stage},
		Financials: domain.Financials{RevenueTTM: decPtr(revenue)},
	}
}

func stepTypes(steps []vdomain.AuditStep) []vdomain.StepType {
	out := make([]vdomain.StepType, len(steps))
	for i, s := range steps {
		out[i] = s.Type()
	}
	return out
}

func requireContiguous(t *testing.T, steps []vdomain.AuditStep) {
	t.Helper()
	for i, s := range steps {
		require.Equal(t, i+1, s.StepNumber)
	}
}
