package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/stockpit/internal/app"
	"github.com/bobmcallan/stockpit/internal/server"
)

// testServer creates an httptest.Server with the full stockpit-server handler
// backed by a stub quote provider, so refresh cycles run without touching the
// real upstream.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	provider := stubProvider(t)
	configPath := writeTestConfig(t, provider.URL)

	a, err := app.NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	srv := server.NewServer(a)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// TestHealthEndpoint verifies GET /api/health returns 200 with {"status":"ok"}.
func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("Expected status=ok, got %q", body["status"])
	}
}

// TestVersionEndpoint verifies GET /api/version returns version info.
func TestVersionEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/version")
	if err != nil {
		t.Fatalf("GET /api/version failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body["version"] == "" {
		t.Error("Expected non-empty version field")
	}
}

// TestHealthEndpoint_MethodNotAllowed verifies POST to health returns 405.
func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/health", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST /api/health, got %d", resp.StatusCode)
	}
}

// TestConfigEndpoint verifies GET /api/config reports the effective settings.
func TestConfigEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/config")
	if err != nil {
		t.Fatalf("GET /api/config failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body["holdings_file"] == nil {
		t.Error("Expected holdings_file in config response")
	}
	if body["fetch_delay"] == nil {
		t.Error("Expected fetch_delay in config response")
	}
}

// TestRefreshThenReport runs a full tracking cycle against the stub provider
// and reads the resulting report back.
func TestRefreshThenReport(t *testing.T) {
	ts := testServer(t)

	// No report before the first cycle.
	resp, err := http.Get(ts.URL + "/api/portfolio/report")
	if err != nil {
		t.Fatalf("GET /api/portfolio/report failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404 before first cycle, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/portfolio/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/portfolio/refresh failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from refresh, got %d", resp.StatusCode)
	}

	var body struct {
		Report struct {
			Positions []struct {
				Code         string  `json:"code"`
				MarketValue  float64 `json:"market_value"`
				CurrentPrice float64 `json:"current_price"`
				RiskStatus   string  `json:"risk_status"`
			} `json:"positions"`
			Summary struct {
				TotalMarketValue float64 `json:"total_market_value"`
			} `json:"summary"`
		} `json:"report"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode refresh response: %v", err)
	}

	if len(body.Report.Positions) != 1 {
		t.Fatalf("Expected 1 position, got %d", len(body.Report.Positions))
	}
	p := body.Report.Positions[0]
	if p.Code != "600036" {
		t.Errorf("Expected code 600036, got %s", p.Code)
	}
	if p.CurrentPrice != 9.50 {
		t.Errorf("Expected current price 9.50, got %.2f", p.CurrentPrice)
	}
	if p.MarketValue != 950.0 {
		t.Errorf("Expected market value 950.00, got %.2f", p.MarketValue)
	}
	if p.RiskStatus != "BREACH" {
		t.Errorf("Expected BREACH risk status, got %s", p.RiskStatus)
	}
	if body.Report.Summary.TotalMarketValue != 950.0 {
		t.Errorf("Expected total market value 950.00, got %.2f", body.Report.Summary.TotalMarketValue)
	}

	// The report endpoint now serves the same cycle.
	resp, err = http.Get(ts.URL + "/api/portfolio/report")
	if err != nil {
		t.Fatalf("GET /api/portfolio/report failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 after refresh, got %d", resp.StatusCode)
	}
}

// --- test helpers ---

// stubProvider serves the provider's kline payload for any secid: two daily
// bars closing 9.00 then 9.50.
func stubProvider(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"rc":0,"data":{"code":"600036","name":"CMB","klines":[`+
			`"2026-03-12,8.95,9.00,9.10,8.90,120000,1080000.0,2.2,0.5,0.05,0.8",`+
			`"2026-03-13,9.05,9.50,9.55,9.00,150000,1420000.0,6.1,5.6,0.50,1.0"]}}`)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeTestConfig(t *testing.T, providerURL string) string {
	t.Helper()
	dir := t.TempDir()

	holdingsPath := filepath.Join(dir, "holdings.json")
	holdingsJSON := `[
  {"code": "600036", "name": "China Merchants Bank", "quantity": 100, "cost_price": 10.0, "stop_loss_pct": 0.08}
]`
	if err := os.WriteFile(holdingsPath, []byte(holdingsJSON), 0644); err != nil {
		t.Fatalf("Failed to write holdings file: %v", err)
	}

	config := `
environment = "development"

[holdings]
file = "` + holdingsPath + `"

[provider]
base_url = "` + providerURL + `"

[tracker]
fetch_delay = "1ms"
refresh_interval = "0"

[logging]
level = "error"
`
	configPath := filepath.Join(dir, "stockpit.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}
