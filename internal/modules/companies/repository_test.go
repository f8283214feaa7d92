package companies

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vcaudit/internal/database"
	"github.com/aristath/vcaudit/internal/domain"
	testutil "github.com/aristath/vcaudit/internal/testing"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db := testutil.NewTestDB(t, database.NameReference)
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestRepository_UpsertAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	company := testutil.NewCompanyFixture()

	require.NoError(t, repo.Upsert(ctx, company))

	got, err := repo.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Analytics", got.Company.Name)
	assert.Equal(t, domain.StageSeriesB, got.Company.Stage)
	require.NotNil(t, got.LastRound)
	assert.Equal(t, "2024-02-29", got.LastRound.Date.String())
	assert.True(t, got.LastRound.PostMoney.Equal(company.LastRound.PostMoney))
	require.NotNil(t, got.Financials.RevenueTTM)
	assert.Equal(t, "10000000", got.Financials.RevenueTTM.String())
}

func TestRepository_UpsertReplaces(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	company := testutil.NewCompanyFixture()
	require.NoError(t, repo.Upsert(ctx, company))

	company.Company.Name = "Acme Analytics Inc."
	company.LastRound = nil
	require.NoError(t, repo.Upsert(ctx, company))

	got, err := repo.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Analytics Inc.", got.Company.Name)
	assert.Nil(t, got.LastRound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepository_UpsertRejectsInvalid(t *testing.T) {
	repo := newTestRepository(t)
	company := testutil.NewCompanyFixture()
	company.Company.Stage = "series_z"

	err := repo.Upsert(context.Background(), company)
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestRepository_GetNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestRepository_ListAndIDs(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	zeta := testutil.NewCompanyFixture()
	zeta.Company.ID = "zeta"
	zeta.Company.Name = "Zeta Robotics"
	require.NoError(t, repo.Upsert(ctx, zeta))
	require.NoError(t, repo.Upsert(ctx, testutil.NewCompanyFixture()))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme Analytics", all[0].Company.Name)
	assert.Equal(t, "Zeta Robotics", all[1].Company.Name)

	ids, err := repo.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "zeta"}, ids)
}

func TestRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, testutil.NewCompanyFixture()))

	require.NoError(t, repo.Delete(ctx, "acme"))
	assert.True(t, domain.IsNotFound(repo.Delete(ctx, "acme")))

	_, err := repo.Get(ctx, "acme")
	assert.True(t, domain.IsNotFound(err))
}
