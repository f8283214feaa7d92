package valuation

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
	"github.com/aristath/vcaudit/internal/modules/valuation/methods"
)

var (
	asOf      = domain.MustParseDate("2024-06-30")
	fixedTime = time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)
	fixedID   = uuid.MustParse("0b6f8a52-3c1e-4f7a-9c59-2f0e7f1d8a11")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// fullCompany has a $10M post-money round four months old and $1M revenue.
func fullCompany() domain.CompanyData {
	return domain.CompanyData{
		Company: domain.Company{ID: "acme", Name: "Acme Analytics", Sector: "saas", Stage: domain.StageSeriesB},
		Financials: domain.Financials{
			RevenueTTM: decPtr("1000000"),
		},
		LastRound: &domain.FundingRound{
			Date:         domain.MustParseDate("2024-02-29"),
			PreMoney:     dec("8000000"),
			PostMoney:    dec("10000000"),
			AmountRaised: dec("2000000"),
			LeadInvestor: "Accel",
		},
	}
}

func flatIndex() *domain.MarketIndex {
	return domain.NewMarketIndex("NASDAQ", []domain.IndexPoint{
		{Date: domain.MustParseDate("2022-01-01"), Value: dec("100")},
		{Date: asOf, Value: dec("100")},
	})
}

func saasComparables() *domain.ComparableSet {
	set := &domain.ComparableSet{Sector: "saas", AsOfDate: asOf}
	for i, m := range []string{"4", "6", "8", "10", "12"} {
		set.Companies = append(set.Companies, domain.ComparableCompany{
			Ticker:          string(rune('A' + i)),
			Name:            "Peer " + string(rune('A'+i)),
			Sector:          "saas",
			RevenueTTM:      dec("100"),
			EnterpriseValue: dec(m).Mul(dec("100")),
		})
	}
	return set
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(func() uuid.UUID { return fixedID }),
	}
	engine, err := NewEngine(vdomain.DefaultConfig(), append(base, opts...)...)
	require.NoError(t, err)
	return engine
}

// fixedMethod always succeeds with a preset value and confidence.
type fixedMethod struct {
	id         vdomain.MethodID
	value      string
	confidence vdomain.Confidence
	err        error
}

func (m *fixedMethod) ID() vdomain.MethodID { return m.id }

func (m *fixedMethod) CheckPrerequisites(methods.Inputs) *vdomain.MethodSkipped { return nil }

func (m *fixedMethod) Execute(methods.Inputs) (vdomain.MethodResult, error) {
	if m.err != nil {
		return vdomain.MethodResult{}, m.err
	}
	return vdomain.MethodResult{
		Method:     m.id,
		Value:      dec(m.value),
		Confidence: m.confidence,
		AuditTrail: []vdomain.AuditStep{},
		Warnings:   []string{},
	}, nil
}

func fixedRegistry(t *testing.T, ms ...*fixedMethod) *methods.Registry {
	t.Helper()
	registry := methods.NewRegistry()
	for i, m := range ms {
		m := m
		require.NoError(t, registry.Register(methods.Registration{
			ID:       m.id,
			Priority: i,
			New:      func(vdomain.Config) methods.Method { return m },
		}))
	}
	return registry
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := vdomain.DefaultConfig()
	cfg.MinComparables = 0

	_, err := NewEngine(cfg)
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestEngine_RunWithData_BothMethods(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.RunWithData(fullCompany(), flatIndex(), saasComparables(), asOf)
	require.NoError(t, err)

	assert.Equal(t, fixedID, result.ID)
	assert.Equal(t, fixedTime, result.CreatedAt)
	assert.Equal(t, "acme", result.CompanyID)
	assert.Equal(t, "Acme Analytics", result.CompanyName)
	assert.Equal(t, "NASDAQ", result.IndexName)
	assert.Empty(t, result.SkippedMethods)
	require.Len(t, result.MethodResults, 2)

	lastRound, ok := result.MethodResult(vdomain.MethodLastRound)
	require.True(t, ok)
	assert.Equal(t, "10000000", lastRound.Value.String())
	assert.Equal(t, vdomain.ConfidenceHigh, lastRound.Confidence)

	comps, ok := result.MethodResult(vdomain.MethodComparables)
	require.True(t, ok)
	assert.Equal(t, "6000000", comps.Value.String())
	assert.Equal(t, vdomain.ConfidenceMedium, comps.Confidence)

	summary := result.Summary
	assert.Equal(t, vdomain.MethodLastRound, summary.PrimaryMethod)
	assert.Equal(t, "10000000", summary.PrimaryValue.String())
	assert.Equal(t, "4500000", summary.ValueRangeLow.String())
	assert.Equal(t, "10000000", summary.ValueRangeHigh.String())
	assert.Equal(t, vdomain.ConfidenceMedium, summary.OverallConfidence)
	assert.Equal(t,
		"Primary valuation: $10.0M (via Last Round method, high confidence). Supporting methods: Comparables: $6.0M.",
		summary.SummaryText)

	require.NotNil(t, result.Comparison)
	assert.Equal(t, "50", result.Comparison.SpreadPercent.String())
	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"spread_percent":"50.0"`)
	assert.Equal(t, "50.0% spread between methods indicates significant uncertainty in valuation.",
		result.Comparison.SpreadWarning)

	assert.Equal(t, vdomain.DefaultConfig().Snapshot(), result.ConfigSnapshot)
	assert.Len(t, result.InputHash, 64)
	assert.Len(t, result.ReferenceDataHash, 64)
}

func TestEngine_RunWithData_Deterministic(t *testing.T) {
	engine := newTestEngine(t)

	first, err := engine.RunWithData(fullCompany(), flatIndex(), saasComparables(), asOf)
	require.NoError(t, err)
	second, err := engine.RunWithData(fullCompany(), flatIndex(), saasComparables(), asOf)
	require.NoError(t, err)

	assert.Equal(t, first.InputHash, second.InputHash)
	assert.Equal(t, first.ReferenceDataHash, second.ReferenceDataHash)
	assert.Equal(t, first, second)
}

func TestEngine_RunWithData_ParallelMatchesSequential(t *testing.T) {
	sequential := newTestEngine(t)
	parallel := newTestEngine(t, WithParallelExecution(true))

	want, err := sequential.RunWithData(fullCompany(), flatIndex(), saasComparables(), asOf)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		got, err := parallel.RunWithData(fullCompany(), flatIndex(), saasComparables(), asOf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEngine_RunWithData_HashSensitivity(t *testing.T) {
	engine := newTestEngine(t)
	withAdjustment := func(factor string) domain.CompanyData {
		c := fullCompany()
		c.Adjustments = []domain.Adjustment{{Name: "Key hire", Factor: dec(factor), Reason: "New CTO"}}
		return c
	}

	base, err := engine.RunWithData(withAdjustment("1.10"), flatIndex(), saasComparables(), asOf)
	require.NoError(t, err)

	t.Run("adjustment factor", func(t *testing.T) {
		changed, err := engine.RunWithData(withAdjustment("1.11"), flatIndex(), saasComparables(), asOf)
		require.NoError(t, err)
		assert.NotEqual(t, base.InputHash, changed.InputHash)
	})

	t.Run("round date", func(t *testing.T) {
		c := withAdjustment("1.10")
		c.LastRound.Date = domain.MustParseDate("2024-03-01")
		changed, err := engine.RunWithData(c, flatIndex(), saasComparables(), asOf)
		require.NoError(t, err)
		assert.NotEqual(t, base.InputHash, changed.InputHash)
	})

	t.Run("config threshold", func(t *testing.T) {
		cfg := vdomain.DefaultConfig()
		cfg.SpreadWarningThreshold = dec("0.31")
		other, err := NewEngine(cfg)
		require.NoError(t, err)

		changed, err := other.RunWithData(withAdjustment("1.10"), flatIndex(), saasComparables(), asOf)
		require.NoError(t, err)
		assert.NotEqual(t, base.InputHash, changed.InputHash)
	})

	t.Run("stage discount", func(t *testing.T) {
		cfg := vdomain.DefaultConfig()
		cfg.StageDiscounts[domain.StageGrowth] = dec("0.10")
		other, err := NewEngine(cfg)
		require.NoError(t, err)

		changed, err := other.RunWithData(withAdjustment("1.10"), flatIndex(), saasComparables(), asOf)
		require.NoError(t, err)
		assert.NotEqual(t, base.InputHash, changed.InputHash)
	})

	t.Run("equal decimals with different scale hash equally", func(t *testing.T) {
		same, err := engine.RunWithData(withAdjustment("1.1"), flatIndex(), saasComparables(), asOf)
		require.NoError(t, err)
		assert.Equal(t, base.InputHash, same.InputHash)
	})

	t.Run("reference data", func(t *testing.T) {
		comps := saasComparables()
		comps.Companies[0].EnterpriseValue = dec("450")
		changed, err := engine.RunWithData(withAdjustment("1.10"), flatIndex(), comps, asOf)
		require.NoError(t, err)
		assert.Equal(t, base.InputHash, changed.InputHash)
		assert.NotEqual(t, base.ReferenceDataHash, changed.ReferenceDataHash)
	})
}

func TestEngine_RunWithData_NoValidMethods(t *testing.T) {
	engine := newTestEngine(t)
	company := domain.CompanyData{
		Company: domain.Company{ID: "ghost", Name: "Ghost", Sector: "saas", Stage: domain.StageSeed},
	}

	result, err := engine.RunWithData(company, flatIndex(), saasComparables(), asOf)
	require.Error(t, err)
	assert.Nil(t, result)

	var noValid *vdomain.NoValidMethodsError
	require.True(t, errors.As(err, &noValid))
	assert.Equal(t, domain.CodeNoValidMethods, domain.CodeOf(err))
	assert.Contains(t, err.Error(), "last_round")
	assert.Contains(t, err.Error(), "comparables")

	require.Len(t, noValid.Skipped, 2)
	assert.Equal(t, vdomain.MethodLastRound, noValid.Skipped[0].Method)
	assert.Equal(t, vdomain.MethodComparables, noValid.Skipped[1].Method)
	for _, s := range noValid.Skipped {
		assert.Equal(t, domain.CodeInsufficientData, s.Code)
	}
}

func TestEngine_RunWithData_AllExecutionsFail(t *testing.T) {
	registry := fixedRegistry(t,
		&fixedMethod{id: vdomain.MethodLastRound, err: errors.New("boom")},
	)
	engine := newTestEngine(t, WithRegistry(registry))

	_, err := engine.RunWithData(fullCompany(), nil, nil, asOf)

	var noValid *vdomain.NoValidMethodsError
	require.True(t, errors.As(err, &noValid))
	require.Len(t, noValid.Skipped, 1)
	assert.Equal(t, domain.CodeCalculation, noValid.Skipped[0].Code)
}

func TestEngine_RunWithData_SingleMethod(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.RunWithData(fullCompany(), flatIndex(), nil, asOf)
	require.NoError(t, err)

	require.Len(t, result.MethodResults, 1)
	require.Len(t, result.SkippedMethods, 1)
	assert.Equal(t, vdomain.MethodComparables, result.SkippedMethods[0].Method)
	assert.Nil(t, result.Comparison)

	summary := result.Summary
	assert.Equal(t, vdomain.MethodLastRound, summary.PrimaryMethod)
	assert.Equal(t, vdomain.ConfidenceHigh, summary.OverallConfidence)
	assert.True(t, summary.ValueRangeLow.Equal(summary.PrimaryValue))
	assert.True(t, summary.ValueRangeHigh.Equal(summary.PrimaryValue))
	assert.Equal(t, "Only one valuation method was applicable. Last Round was used with high confidence.",
		summary.SelectionReason)
	assert.Equal(t, "NASDAQ", result.IndexName)
}

func TestEngine_RunWithData_SpreadWarningDowngradesConfidence(t *testing.T) {
	registry := fixedRegistry(t,
		&fixedMethod{id: vdomain.MethodLastRound, value: "80000000", confidence: vdomain.ConfidenceHigh},
		&fixedMethod{id: vdomain.MethodComparables, value: "50000000", confidence: vdomain.ConfidenceHigh},
	)
	engine := newTestEngine(t, WithRegistry(registry))

	result, err := engine.RunWithData(fullCompany(), nil, nil, asOf)
	require.NoError(t, err)

	require.NotNil(t, result.Comparison)
	assert.Equal(t, "46.2", result.Comparison.SpreadPercent.String())
	assert.Equal(t, "46.2% spread between methods indicates significant uncertainty in valuation.",
		result.Comparison.SpreadWarning)
	assert.Equal(t, vdomain.ConfidenceMedium, result.Summary.OverallConfidence)
	assert.Equal(t, "50000000", result.Summary.ValueRangeLow.String())
	assert.Equal(t, "80000000", result.Summary.ValueRangeHigh.String())
}

func TestEngine_RunWithData_AgreementKeepsConfidence(t *testing.T) {
	registry := fixedRegistry(t,
		&fixedMethod{id: vdomain.MethodLastRound, value: "100", confidence: vdomain.ConfidenceHigh},
		&fixedMethod{id: vdomain.MethodComparables, value: "90", confidence: vdomain.ConfidenceLow},
	)
	engine := newTestEngine(t, WithRegistry(registry))

	result, err := engine.RunWithData(fullCompany(), nil, nil, asOf)
	require.NoError(t, err)

	assert.Empty(t, result.Comparison.SpreadWarning)
	assert.Equal(t, "10.5", result.Comparison.SpreadPercent.String())
	// The agreeing low-confidence method caps the overall confidence.
	assert.Equal(t, vdomain.ConfidenceLow, result.Summary.OverallConfidence)
	assert.Contains(t, result.Summary.SelectionReason, "because it has higher confidence (High vs Low).")
	assert.Contains(t, result.Summary.SelectionReason, "The 10.5% spread shows good agreement between methods.")
}

func TestEngine_RunWithData_TieBrokenByPriority(t *testing.T) {
	registry := methods.NewRegistry()
	comps := &fixedMethod{id: vdomain.MethodComparables, value: "95", confidence: vdomain.ConfidenceMedium}
	lastRound := &fixedMethod{id: vdomain.MethodLastRound, value: "100", confidence: vdomain.ConfidenceMedium}
	require.NoError(t, registry.Register(methods.Registration{
		ID: comps.id, Priority: 1, New: func(vdomain.Config) methods.Method { return comps },
	}))
	require.NoError(t, registry.Register(methods.Registration{
		ID: lastRound.id, Priority: 0, New: func(vdomain.Config) methods.Method { return lastRound },
	}))
	engine := newTestEngine(t, WithRegistry(registry))

	result, err := engine.RunWithData(fullCompany(), nil, nil, asOf)
	require.NoError(t, err)

	assert.Equal(t, vdomain.MethodLastRound, result.Summary.PrimaryMethod)
	assert.Equal(t, vdomain.MethodLastRound, result.MethodResults[0].Method)

	steps := result.Comparison.SelectionSteps
	require.Len(t, steps, 4)
	assert.Equal(t, "Ran all applicable valuation methods: Last Round, Comparables", steps[0])
	assert.Equal(t, "Assessed confidence: Last Round: MEDIUM; Comparables: MEDIUM", steps[1])
	assert.Contains(t, steps[2], "equal confidence is broken by fixed priority (Last Round > Comparables)")
	assert.Equal(t, "Selected Last Round as primary (medium confidence, tied with Comparables; chosen by priority)", steps[3])
	assert.Contains(t, result.Summary.SelectionReason, "ranks first in the fixed method priority")

	assert.True(t, result.Comparison.Methods[0].IsPrimary)
	assert.False(t, result.Comparison.Methods[1].IsPrimary)
}

func TestEngine_RunWithData_HigherConfidenceBeatsPriority(t *testing.T) {
	registry := fixedRegistry(t,
		&fixedMethod{id: vdomain.MethodLastRound, value: "100", confidence: vdomain.ConfidenceLow},
		&fixedMethod{id: vdomain.MethodComparables, value: "105", confidence: vdomain.ConfidenceHigh},
	)
	engine := newTestEngine(t, WithRegistry(registry))

	result, err := engine.RunWithData(fullCompany(), nil, nil, asOf)
	require.NoError(t, err)

	assert.Equal(t, vdomain.MethodComparables, result.Summary.PrimaryMethod)
	assert.Equal(t, "105", result.Summary.PrimaryValue.String())
	assert.Equal(t, "Selected Comparables as primary (high confidence)",
		result.Comparison.SelectionSteps[len(result.Comparison.SelectionSteps)-1])
}

func TestEngine_RunWithData_ExecutionFailureIsSkipped(t *testing.T) {
	registry := fixedRegistry(t,
		&fixedMethod{id: vdomain.MethodLastRound, err: &domain.CalculationError{Method: "last_round", Step: "market_adjustment", Reason: "collapse"}},
		&fixedMethod{id: vdomain.MethodComparables, value: "42", confidence: vdomain.ConfidenceMedium},
	)
	engine := newTestEngine(t, WithRegistry(registry))

	result, err := engine.RunWithData(fullCompany(), nil, nil, asOf)
	require.NoError(t, err)

	require.Len(t, result.SkippedMethods, 1)
	assert.Equal(t, vdomain.MethodLastRound, result.SkippedMethods[0].Method)
	assert.Equal(t, domain.CodeCalculation, result.SkippedMethods[0].Code)
	assert.Equal(t, vdomain.MethodComparables, result.Summary.PrimaryMethod)
}
