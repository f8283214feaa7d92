package valuation

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vcaudit/internal/database"
	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
	testutil "github.com/aristath/vcaudit/internal/testing"
)

type serviceFixture struct {
	service     *Service
	companies   *testutil.MockCompanyProvider
	indices     *testutil.MockIndexProvider
	comparables *testutil.MockComparablesProvider
}

func newServiceFixture(t *testing.T, store ResultStore) serviceFixture {
	t.Helper()
	f := serviceFixture{
		companies:   testutil.NewMockCompanyProvider(testutil.NewCompanyFixture()),
		indices:     testutil.NewMockIndexProvider(testutil.NewIndexFixture("NASDAQ")),
		comparables: testutil.NewMockComparablesProvider(testutil.NewComparablesFixture("saas")),
	}
	f.service = NewService(newTestEngine(t), f.companies, f.indices, f.comparables, store,
		ServiceConfig{DefaultIndex: "NASDAQ", BatchWorkers: 2}, zerolog.Nop())
	return f
}

func TestService_Run(t *testing.T) {
	f := newServiceFixture(t, nil)

	result, err := f.service.Run(context.Background(), Request{CompanyID: "acme", AsOf: testutil.FixtureAsOf})
	require.NoError(t, err)

	assert.Equal(t, 1, f.indices.Calls())
	assert.Equal(t, 1, f.comparables.Calls())
	assert.Equal(t, "NASDAQ", result.IndexName)
	assert.Empty(t, result.SkippedMethods)

	lastRound, ok := result.MethodResult(vdomain.MethodLastRound)
	require.True(t, ok)
	// +10% index move at beta 1.5 on a $50M round
	assert.Equal(t, "57500000", lastRound.Value.String())

	comps, ok := result.MethodResult(vdomain.MethodComparables)
	require.True(t, ok)
	assert.Equal(t, "60000000", comps.Value.String())

	assert.Equal(t, vdomain.MethodLastRound, result.Summary.PrimaryMethod)
	assert.Equal(t, vdomain.ConfidenceMedium, result.Summary.OverallConfidence)
	assert.Equal(t, "4.3", result.Comparison.SpreadPercent.String())
	assert.Empty(t, result.Comparison.SpreadWarning)
}

func TestService_Run_UnknownCompany(t *testing.T) {
	f := newServiceFixture(t, nil)

	_, err := f.service.Run(context.Background(), Request{CompanyID: "ghost", AsOf: testutil.FixtureAsOf})
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Zero(t, f.indices.Calls())
}

func TestService_Run_MissingReferenceDataSkipsMethods(t *testing.T) {
	t.Run("unknown index", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		result, err := f.service.Run(context.Background(),
			Request{CompanyID: "acme", AsOf: testutil.FixtureAsOf, IndexName: "FTSE"})
		require.NoError(t, err)

		require.Len(t, result.SkippedMethods, 1)
		assert.Equal(t, vdomain.MethodLastRound, result.SkippedMethods[0].Method)
		assert.Contains(t, result.SkippedMethods[0].MissingFields, "market_index")
		assert.Equal(t, vdomain.MethodComparables, result.Summary.PrimaryMethod)
		assert.Empty(t, result.IndexName)
	})

	t.Run("insufficient comparables", func(t *testing.T) {
		short := testutil.NewComparablesFixture("saas")
		short.Companies = short.Companies[:2]
		f := newServiceFixture(t, nil)
		f.comparables = testutil.NewMockComparablesProvider(short)
		f.comparables.SetError(&domain.InsufficientDataError{
			Subject: "comparables for sector saas",
			Reason:  "found 2 comparables, need 3",
		})
		f.service = NewService(newTestEngine(t), f.companies, f.indices, f.comparables, nil,
			ServiceConfig{DefaultIndex: "NASDAQ", BatchWorkers: 2}, zerolog.Nop())

		result, err := f.service.Run(context.Background(), Request{CompanyID: "acme", AsOf: testutil.FixtureAsOf})
		require.NoError(t, err)

		require.Len(t, result.SkippedMethods, 1)
		skipped := result.SkippedMethods[0]
		assert.Equal(t, vdomain.MethodComparables, skipped.Method)
		assert.Equal(t, "Insufficient comparables for sector 'saas'. Found 2, need 3", skipped.Reason)
		assert.NotContains(t, skipped.Reason, "No comparable companies")
		assert.Equal(t, vdomain.MethodLastRound, result.Summary.PrimaryMethod)
	})

	t.Run("no comparables for sector", func(t *testing.T) {
		f := newServiceFixture(t, nil)
		f.comparables.SetError(&domain.NotFoundError{Resource: "comparables for sector", ID: "saas"})

		result, err := f.service.Run(context.Background(), Request{CompanyID: "acme", AsOf: testutil.FixtureAsOf})
		require.NoError(t, err)

		require.Len(t, result.SkippedMethods, 1)
		assert.Equal(t, "No comparable companies available for sector 'saas'", result.SkippedMethods[0].Reason)
	})
}

func TestService_Run_ProviderFailureAborts(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.indices.SetError(errors.New("connection reset"))

	_, err := f.service.Run(context.Background(), Request{CompanyID: "acme", AsOf: testutil.FixtureAsOf})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load index NASDAQ")
	assert.Equal(t, domain.CodeInternal, domain.CodeOf(err))
}

func TestService_RunCustom(t *testing.T) {
	f := newServiceFixture(t, nil)

	company := testutil.NewCompanyFixture()
	company.Company.ID = "draft"
	result, err := f.service.RunCustom(context.Background(), company, testutil.FixtureAsOf, "")
	require.NoError(t, err)
	assert.Equal(t, "draft", result.CompanyID)
	assert.Zero(t, f.companies.Calls())

	company.LastRound.PostMoney = dec("1")
	_, err = f.service.RunCustom(context.Background(), company, testutil.FixtureAsOf, "")
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestService_RunCustom_RoundAfterValuationDate(t *testing.T) {
	f := newServiceFixture(t, nil)

	_, err := f.service.RunCustom(context.Background(), testutil.NewCompanyFixture(), domain.MustParseDate("2024-01-01"), "")
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestService_RunBatch(t *testing.T) {
	f := newServiceFixture(t, nil)

	items := f.service.RunBatch(context.Background(), []string{"acme", "ghost", "acme"}, testutil.FixtureAsOf, "")
	require.Len(t, items, 3)

	assert.Equal(t, "acme", items[0].CompanyID)
	require.NotNil(t, items[0].Result)
	assert.Nil(t, items[0].Error)

	assert.Equal(t, "ghost", items[1].CompanyID)
	assert.Nil(t, items[1].Result)
	require.NotNil(t, items[1].Error)
	assert.Equal(t, domain.CodeNotFound, items[1].Error.Code)
	assert.Equal(t, "DataNotFoundError", items[1].Error.ErrorType)

	require.NotNil(t, items[2].Result)
	assert.Equal(t, items[0].Result.InputHash, items[2].Result.InputHash)
}

func TestService_RunBatch_Empty(t *testing.T) {
	f := newServiceFixture(t, nil)
	assert.Empty(t, f.service.RunBatch(context.Background(), nil, testutil.FixtureAsOf, ""))
}

func TestService_RunAndSave(t *testing.T) {
	db := testutil.NewTestDB(t, database.NameLedger)
	store := NewSQLiteResultStore(db.Conn(), zerolog.Nop())
	f := newServiceFixture(t, store)
	ctx := context.Background()

	result, err := f.service.RunAndSave(ctx, Request{CompanyID: "acme", AsOf: testutil.FixtureAsOf})
	require.NoError(t, err)

	saved, err := store.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.InputHash, saved.InputHash)
	assert.True(t, result.Summary.PrimaryValue.Equal(saved.Summary.PrimaryValue))
}

func TestService_RunAndSave_WithoutStore(t *testing.T) {
	f := newServiceFixture(t, nil)

	_, err := f.service.RunAndSave(context.Background(), Request{CompanyID: "acme", AsOf: testutil.FixtureAsOf})
	assert.Error(t, err)
}

func TestNoValidMethodsErrorInfo(t *testing.T) {
	info := domain.NewErrorInfo(&vdomain.NoValidMethodsError{CompanyID: "ghost"})
	assert.Equal(t, domain.CodeNoValidMethods, info.Code)
	assert.Equal(t, "NoValidMethodsError", info.ErrorType)
	assert.Equal(t, "ghost", info.Details["company_id"])
}
