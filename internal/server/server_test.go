package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vcaudit/internal/config"
	"github.com/aristath/vcaudit/internal/di"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

func setupServer(t *testing.T, rateLimit int) *Server {
	t.Helper()

	cfg := &config.Config{
		DataDir:               t.TempDir(),
		DefaultIndex:          "NASDAQ",
		Port:                  8000,
		MaxConcurrentRequests: 8,
		RateLimitRequests:     rateLimit,
		RateLimitWindowSecs:   60,
		BatchWorkers:          2,
		DevMode:               true,
		Valuation:             vdomain.DefaultConfig(),
	}
	log := zerolog.New(nil).Level(zerolog.Disabled)

	container, jobs, err := di.Wire(cfg, log, nil)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return New(Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Jobs:      jobs,
	})
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := setupServer(t, 0)

	for _, path := range []string{"/health", "/api/health"} {
		rec := do(s, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "vcaudit", body["service"])
	}
}

func TestServer_RequestIDHeaderPropagates(t *testing.T) {
	s := setupServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CompanyLifecycleAndValuation(t *testing.T) {
	s := setupServer(t, 0)

	company := `{
		"company": {"id": "acme", "name": "Acme Analytics", "sector": "saas", "stage": "series_a"},
		"last_round": {"date": "2026-05-01", "valuation_pre": "40000000", "valuation_post": "50000000", "amount_raised": "10000000", "lead_investor": "Fund I"}
	}`
	rec := do(s, http.MethodPost, "/api/companies", company)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	index := `{"points": [{"date": "2026-05-01", "value": "15000"}, {"date": "2026-09-01", "value": "16500"}]}`
	rec = do(s, http.MethodPost, "/api/indices/NASDAQ", index)
	require.Less(t, rec.Code, 300, rec.Body.String())

	rec = do(s, http.MethodGet, "/api/companies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"acme"`)

	rec = do(s, http.MethodPost, "/api/valuations", `{"company_id": "acme", "as_of_date": "2026-09-01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "acme", result["company_id"])
	assert.NotEmpty(t, result["input_hash"])

	summary := result["summary"].(map[string]interface{})
	assert.Equal(t, "last_round", summary["primary_method"])
}

func TestServer_NotFoundUsesErrorShape(t *testing.T) {
	s := setupServer(t, 0)

	rec := do(s, http.MethodPost, "/api/valuations", `{"company_id": "ghost"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "DataNotFoundError", body["error_type"])
}

func TestServer_SystemStatus(t *testing.T) {
	s := setupServer(t, 0)

	rec := do(s, http.MethodGet, "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "sqlite", body.ResultStore)
	assert.False(t, body.Archive)
	assert.Equal(t, []string{"database_maintenance", "revalue_portfolio"}, body.Jobs)
	require.Len(t, body.Databases, 2)
	assert.Equal(t, "reference", body.Databases[0].Name)
	assert.Equal(t, "ledger", body.Databases[1].Name)
}

func TestServer_TriggerUnknownJob(t *testing.T) {
	s := setupServer(t, 0)

	rec := do(s, http.MethodPost, "/api/system/jobs/archive_valuations", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RateLimitExemptsHealth(t *testing.T) {
	s := setupServer(t, 1)

	rec := do(s, http.MethodGet, "/api/companies", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, http.MethodGet, "/api/companies", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := setupServer(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/valuations", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
