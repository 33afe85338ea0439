package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockpit/internal/models"
	"github.com/bobmcallan/stockpit/tests/common"
)

// reportEnvelope mirrors the JSON served by the report and refresh endpoints.
type reportEnvelope struct {
	Report  models.PortfolioReport `json:"report"`
	Stale   bool                   `json:"stale"`
	Running bool                   `json:"running"`
}

// TestPortfolioWorkflow walks the full tracking flow over HTTP: list the
// holdings, run a refresh against the stub provider, then read the report,
// history and chart back. One holding has no provider data and must surface
// as a soft failure without sinking the cycle.
func TestPortfolioWorkflow(t *testing.T) {
	holdings := append(common.DefaultHoldings(), models.Holding{
		Code: "999999", Name: "Ghost Industries", Quantity: 10, CostPrice: 5.0, StopLossPct: 0.05,
	})
	env := common.NewEnvWithOptions(t, common.EnvOptions{Holdings: holdings})
	defer env.Cleanup()

	// Step 1: holdings endpoint serves the configured file
	t.Run("list_holdings", func(t *testing.T) {
		resp, err := env.HTTPGet("/api/holdings")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "list holdings: %s", string(body))

		var result struct {
			Holdings []models.Holding `json:"holdings"`
			Count    int              `json:"count"`
		}
		require.NoError(t, json.Unmarshal(body, &result))
		assert.Equal(t, 3, result.Count)
		require.Len(t, result.Holdings, 3)
		assert.Equal(t, "600036", result.Holdings[0].Code)
	})

	// Step 2: no report exists before the first cycle
	t.Run("no_report_before_refresh", func(t *testing.T) {
		resp, err := env.HTTPGet("/api/portfolio/report")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	// Step 3: run a cycle; check metrics, risk classification and failures
	var cycleID string
	t.Run("refresh", func(t *testing.T) {
		resp, err := env.HTTPPost("/api/portfolio/refresh", nil)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, "refresh: %s", string(body))

		var result reportEnvelope
		require.NoError(t, json.Unmarshal(body, &result))
		cycleID = result.Report.CycleID
		assert.NotEmpty(t, cycleID)
		assert.False(t, result.Stale)

		// Positions keep holdings-file order; the failed code produces no row.
		require.Len(t, result.Report.Positions, 2)
		breach := result.Report.Positions[0]
		safe := result.Report.Positions[1]

		assert.Equal(t, "600036", breach.Code)
		assert.Equal(t, 9.50, breach.CurrentPrice)
		assert.Equal(t, 950.0, breach.MarketValue)
		assert.Equal(t, -50.0, breach.UnrealizedProfit)
		assert.Equal(t, -5.0, breach.UnrealizedProfitPct)
		assert.InDelta(t, 10.0, breach.DayProfit, 1e-9)
		assert.Equal(t, models.RiskBreach, breach.RiskStatus)

		assert.Equal(t, "000651", safe.Code)
		assert.Equal(t, 1800.0, safe.MarketValue)
		assert.Equal(t, 300.0, safe.UnrealizedProfit)
		assert.Equal(t, 20.0, safe.UnrealizedProfitPct)
		assert.InDelta(t, 5.0, safe.DayProfit, 1e-9)
		assert.Equal(t, models.RiskSafe, safe.RiskStatus)

		// Totals fold successful positions only.
		assert.Equal(t, 2750.0, result.Report.Summary.TotalMarketValue)
		assert.Equal(t, 250.0, result.Report.Summary.TotalUnrealizedProfit)
		assert.InDelta(t, 15.0, result.Report.Summary.TotalDayProfit, 1e-9)

		require.Len(t, result.Report.Failures, 1)
		assert.Equal(t, "999999", result.Report.Failures[0].Code)
		assert.Equal(t, models.FailureEmptyHistory, result.Report.Failures[0].Reason)

		env.SaveResult("refresh.json", body)
		t.Logf("refresh: cycle=%s positions=%d failures=%d", cycleID,
			len(result.Report.Positions), len(result.Report.Failures))
	})

	// Step 4: the report endpoint serves the same cycle
	t.Run("report_persists", func(t *testing.T) {
		resp, err := env.HTTPGet("/api/portfolio/report")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, "get report: %s", string(body))

		var result reportEnvelope
		require.NoError(t, json.Unmarshal(body, &result))
		assert.Equal(t, cycleID, result.Report.CycleID)
		assert.False(t, result.Running)
	})

	// Step 5: per-instrument history comes from the report's window
	t.Run("instrument_history", func(t *testing.T) {
		resp, err := env.HTTPGet("/api/instruments/600036/history?days=5")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, "history: %s", string(body))

		var result struct {
			Code  string              `json:"code"`
			Bars  []models.HistoryBar `json:"bars"`
			Count int                 `json:"count"`
		}
		require.NoError(t, json.Unmarshal(body, &result))
		assert.Equal(t, "600036", result.Code)
		require.Equal(t, 5, result.Count)
		assert.Equal(t, 9.50, result.Bars[len(result.Bars)-1].Close)
	})

	// Step 6: unknown code is a 404, not a failure
	t.Run("history_unknown_code", func(t *testing.T) {
		resp, err := env.HTTPGet("/api/instruments/424242/history")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	// Step 7: chart renders a PNG from the same history
	t.Run("instrument_chart", func(t *testing.T) {
		resp, err := env.HTTPGet("/api/instruments/600036/chart.png")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")), "expected PNG magic, got %x", body[:min(8, len(body))])

		env.SaveResult("600036.png", body)
	})
}

// TestPortfolioWorkflow_AllHoldingsFailed drives a cycle where no holding can
// be fetched; the refresh must fail as a whole and leave no report installed.
func TestPortfolioWorkflow_AllHoldingsFailed(t *testing.T) {
	env := common.NewEnvWithOptions(t, common.EnvOptions{
		Holdings: []models.Holding{
			{Code: "111111", Name: "Nowhere A", Quantity: 10, CostPrice: 1.0, StopLossPct: 0.05},
			{Code: "222222", Name: "Nowhere B", Quantity: 10, CostPrice: 1.0, StopLossPct: 0.05},
		},
	})
	defer env.Cleanup()

	resp, err := env.HTTPPost("/api/portfolio/refresh", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode, "refresh: %s", string(body))

	var result struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "ALL_HOLDINGS_FAILED", result.Code)

	// Still no report.
	resp, err = env.HTTPGet("/api/portfolio/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
