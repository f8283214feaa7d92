package testing

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/vcaudit/internal/domain"
)

// FixtureAsOf is the valuation date the fixtures are built around.
var FixtureAsOf = domain.MustParseDate("2024-06-30")

// NewCompanyFixture returns a Series B SaaS company with $10M revenue and a
// $50M post-money round four months before FixtureAsOf.
func NewCompanyFixture() domain.CompanyData {
	founded := domain.MustParseDate("2019-03-01")
	return domain.CompanyData{
		Company: domain.Company{
			ID:          "acme",
			Name:        "Acme Analytics",
			Sector:      "saas",
			Stage:       domain.StageSeriesB,
			FoundedDate: &founded,
		},
		Financials: domain.Financials{
			RevenueTTM:       decPtr("10000000"),
			RevenueGrowthYoY: decPtr("0.85"),
			GrossMargin:      decPtr("0.78"),
			BurnRate:         decPtr("450000"),
			RunwayMonths:     intPtr(26),
		},
		LastRound: &domain.FundingRound{
			Date:         domain.MustParseDate("2024-02-29"),
			PreMoney:     dec("40000000"),
			PostMoney:    dec("50000000"),
			AmountRaised: dec("10000000"),
			LeadInvestor: "Accel",
		},
	}
}

// NewIndexFixture returns a monthly series that rises 10% between the round
// date of NewCompanyFixture and FixtureAsOf.
func NewIndexFixture(name string) *domain.MarketIndex {
	return domain.NewMarketIndex(name, []domain.IndexPoint{
		{Date: domain.MustParseDate("2023-12-29"), Value: dec("15000")},
		{Date: domain.MustParseDate("2024-01-31"), Value: dec("15200")},
		{Date: domain.MustParseDate("2024-02-29"), Value: dec("16000")},
		{Date: domain.MustParseDate("2024-03-28"), Value: dec("16400")},
		{Date: domain.MustParseDate("2024-04-30"), Value: dec("15800")},
		{Date: domain.MustParseDate("2024-05-31"), Value: dec("16900")},
		{Date: domain.MustParseDate("2024-06-28"), Value: dec("17600")},
	})
}

// NewComparablesFixture returns five peers with multiples 4, 6, 8, 10 and 12.
func NewComparablesFixture(sector string) *domain.ComparableSet {
	peers := []struct {
		ticker, name, multiple string
	}{
		{"CRM", "Salesforce", "4"},
		{"NOW", "ServiceNow", "6"},
		{"DDOG", "Datadog", "8"},
		{"SNOW", "Snowflake", "10"},
		{"MDB", "MongoDB", "12"},
	}

	set := &domain.ComparableSet{Sector: sector, AsOfDate: FixtureAsOf}
	for _, p := range peers {
		set.Companies = append(set.Companies, domain.ComparableCompany{
			Ticker:          p.ticker,
			Name:            p.name,
			Sector:          sector,
			RevenueTTM:      dec("1000000000"),
			EnterpriseValue: dec(p.multiple).Mul(dec("1000000000")),
		})
	}
	return set
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}
