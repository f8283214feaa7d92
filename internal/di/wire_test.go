package di

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vcaudit/internal/config"
	"github.com/aristath/vcaudit/internal/domain"
	"github.com/aristath/vcaudit/internal/modules/valuation"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
	"github.com/aristath/vcaudit/internal/scheduler"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:      t.TempDir(),
		DefaultIndex: "NASDAQ",
		BatchWorkers: 2,
		Schedule: config.ScheduleConfig{
			Archive: "0 */6 * * *",
			Revalue: "0 2 * * 1",
		},
		Valuation: vdomain.DefaultConfig(),
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)
	t.Cleanup(container.Close)

	assert.NotNil(t, container.ReferenceDB)
	assert.NotNil(t, container.LedgerDB)
	assert.NotNil(t, container.CompanyRepo)
	assert.NotNil(t, container.IndexRepo)
	assert.NotNil(t, container.ComparablesRepo)
	assert.NotNil(t, container.ResultStore)
	assert.NotNil(t, container.Engine)
	assert.NotNil(t, container.ValuationService)
	assert.NotNil(t, container.IndexService)
	assert.Nil(t, container.ArchiveService, "archive is disabled without a bucket")

	assert.NotNil(t, jobs.Maintenance)
	assert.NotNil(t, jobs.Revalue)
	assert.Nil(t, jobs.Archive)
}

func TestWire_InvalidValuationConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Valuation.MinComparables = 0

	container, jobs, err := Wire(cfg, zerolog.Nop(), nil)
	assert.Error(t, err)
	assert.Nil(t, container)
	assert.Nil(t, jobs)
}

func TestWire_RegistersJobsWithScheduler(t *testing.T) {
	cfg := testConfig(t)
	sched := scheduler.New(zerolog.Nop())

	container, jobs, err := Wire(cfg, zerolog.Nop(), sched)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	require.NoError(t, sched.RunNow(jobs.Maintenance))
}

func TestWire_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.Revalue = "not a schedule"

	_, _, err := Wire(cfg, zerolog.Nop(), scheduler.New(zerolog.Nop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revalue_portfolio")
}

func TestWire_EndToEndValuation(t *testing.T) {
	cfg := testConfig(t)

	container, _, err := Wire(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	_, err = container.ValuationService.Run(context.Background(), valuation.Request{CompanyID: "missing"})
	assert.True(t, domain.IsNotFound(err))
}
