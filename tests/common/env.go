// Package common provides shared test infrastructure
package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/stockpit/internal/app"
	"github.com/bobmcallan/stockpit/internal/models"
	"github.com/bobmcallan/stockpit/internal/server"
)

// EnvOptions configures the in-process test environment
type EnvOptions struct {
	// Holdings seeds the holdings file. Empty means the default two-position
	// portfolio: 600036 (underwater, breaching) and 000651 (in profit, safe).
	Holdings []models.Holding

	// Provider overrides the stub quote provider. Defaults to a handler
	// serving twelve daily bars per known code and an empty kline set for
	// unknown codes.
	Provider http.Handler
}

// Env is an isolated in-process test environment: a stub quote provider, a
// fully wired App, and the HTTP server mounted on httptest.
type Env struct {
	t          *testing.T
	App        *app.App
	Server     *httptest.Server
	Provider   *httptest.Server
	ResultsDir string
}

// stubQuotes holds the [previous close, last close] pair served for each
// known code. Unknown codes get an empty kline set, which the tracker
// records as an EMPTY_HISTORY failure.
var stubQuotes = map[string][2]float64{
	"600036": {9.40, 9.50},
	"000651": {35.90, 36.00},
}

// DefaultHoldings returns the standard two-position test portfolio. Against
// the stub quotes, 600036 classifies BREACH and 000651 classifies SAFE.
func DefaultHoldings() []models.Holding {
	return []models.Holding{
		{Code: "600036", Name: "China Merchants Bank", Quantity: 100, CostPrice: 10.0, StopLossPct: 0.08},
		{Code: "000651", Name: "Gree Electric", Quantity: 50, CostPrice: 30.0, StopLossPct: 0.10},
	}
}

// NewEnv creates a new test environment with default options.
func NewEnv(t *testing.T) *Env {
	return NewEnvWithOptions(t, EnvOptions{})
}

// NewEnvWithOptions creates a new test environment with custom options.
func NewEnvWithOptions(t *testing.T, opts EnvOptions) *Env {
	t.Helper()

	holdings := opts.Holdings
	if len(holdings) == 0 {
		holdings = DefaultHoldings()
	}

	providerHandler := opts.Provider
	if providerHandler == nil {
		providerHandler = StubProviderHandler()
	}
	provider := httptest.NewServer(providerHandler)

	dir := t.TempDir()

	holdingsPath := filepath.Join(dir, "holdings.json")
	holdingsJSON, err := json.MarshalIndent(holdings, "", "  ")
	if err != nil {
		provider.Close()
		t.Fatalf("Failed to marshal holdings: %v", err)
	}
	if err := os.WriteFile(holdingsPath, holdingsJSON, 0644); err != nil {
		provider.Close()
		t.Fatalf("Failed to write holdings file: %v", err)
	}

	config := fmt.Sprintf(`
environment = "development"

[holdings]
file = %q

[provider]
base_url = %q

[tracker]
fetch_delay = "1ms"
refresh_interval = "0"

[logging]
level = "error"
`, holdingsPath, provider.URL)

	configPath := filepath.Join(dir, "stockpit.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		provider.Close()
		t.Fatalf("Failed to write test config: %v", err)
	}

	a, err := app.NewApp(configPath)
	if err != nil {
		provider.Close()
		t.Fatalf("Failed to create app: %v", err)
	}
	a.StartProgressHub()

	srv := server.NewServer(a)
	ts := httptest.NewServer(srv.Handler())

	datetime := time.Now().Format("20060102-150405")
	resultsDir := filepath.Join(FindProjectRoot(), "tests", "results", datetime+"-"+t.Name())

	return &Env{
		t:          t,
		App:        a,
		Server:     ts,
		Provider:   provider,
		ResultsDir: resultsDir,
	}
}

// Cleanup tears down the HTTP server, the stub provider and the app.
func (e *Env) Cleanup() {
	if e == nil {
		return
	}
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Provider != nil {
		e.Provider.Close()
	}
	if e.App != nil {
		e.App.Close()
	}
}

// URL returns the base URL of the test server.
func (e *Env) URL() string {
	return e.Server.URL
}

// HTTPGet performs a GET request against the test server.
func (e *Env) HTTPGet(path string) (*http.Response, error) {
	return e.Server.Client().Get(e.Server.URL + path)
}

// HTTPPost performs a POST request with a JSON body against the test server.
// A nil body sends an empty request.
func (e *Env) HTTPPost(path string, body interface{}) (*http.Response, error) {
	return e.HTTPRequest(http.MethodPost, path, body, nil)
}

// HTTPRequest performs a request with optional JSON body and headers.
func (e *Env) HTTPRequest(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return e.Server.Client().Do(req)
}

// MCPCall sends a JSON-RPC request to the server's /mcp endpoint and returns
// the raw response body.
func (e *Env) MCPCall(method string, params interface{}) (json.RawMessage, error) {
	reqBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.Server.URL+"/mcp", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := e.Server.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("mcp request failed: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read mcp response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mcp endpoint returned %d: %s", resp.StatusCode, buf.String())
	}

	return json.RawMessage(buf.Bytes()), nil
}

// SaveResult saves test output to the results directory
func (e *Env) SaveResult(name string, data []byte) error {
	if err := os.MkdirAll(e.ResultsDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.ResultsDir, name), data, 0644)
}

// StubProviderHandler serves the provider's kline payload. Known codes get
// twelve daily bars ending today at the table's last close; unknown codes
// get a null data envelope, which the client reports as no history.
func StubProviderHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secid := r.URL.Query().Get("secid")
		code := secid
		if i := strings.Index(secid, "."); i >= 0 {
			code = secid[i+1:]
		}

		w.Header().Set("Content-Type", "application/json")

		quotes, ok := stubQuotes[code]
		if !ok {
			fmt.Fprint(w, `{"rc":0,"data":null}`)
			return
		}

		resp := map[string]interface{}{
			"rc": 0,
			"data": map[string]interface{}{
				"code":   code,
				"name":   code,
				"klines": buildKlines(quotes[0], quotes[1]),
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
}

// buildKlines produces twelve ascending daily rows ending today. The last
// two closes are prevClose and lastClose so day-profit assertions have
// exact inputs; earlier closes step down by 0.10 per day.
func buildKlines(prevClose, lastClose float64) []string {
	lines := make([]string, 0, 12)
	today := time.Now()
	for i := 0; i < 12; i++ {
		date := today.AddDate(0, 0, i-11)
		var close float64
		switch i {
		case 11:
			close = lastClose
		case 10:
			close = prevClose
		default:
			close = prevClose - float64(10-i)*0.10
		}
		lines = append(lines, fmt.Sprintf("%s,%.2f,%.2f,%.2f,%.2f,%d,0,0,0,0,0",
			date.Format("2006-01-02"), close-0.02, close, close+0.05, close-0.08, 100000+i))
	}
	return lines
}

// FindProjectRoot walks up directories to find go.mod
func FindProjectRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}

// MCPToolResponse represents the structure of an MCP tools/call response
type MCPToolResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Result  struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseMCPToolResponse parses an MCP tool response from raw JSON
func ParseMCPToolResponse(data json.RawMessage) (*MCPToolResponse, error) {
	var resp MCPToolResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse MCP response: %w", err)
	}
	return &resp, nil
}

// MCPText extracts and concatenates the text content from an MCP tool
// response, or returns an error when the response carries one.
func MCPText(data json.RawMessage) (string, error) {
	resp, err := ParseMCPToolResponse(data)
	if err != nil {
		return "", err
	}

	if resp.Error != nil {
		return "", fmt.Errorf("MCP error [%d]: %s", resp.Error.Code, resp.Error.Message)
	}

	var texts []string
	for _, c := range resp.Result.Content {
		if c.Type == "text" && c.Text != "" {
			texts = append(texts, c.Text)
		}
	}
	if resp.Result.IsError {
		return "", fmt.Errorf("MCP tool error: %s", strings.Join(texts, "\n"))
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("MCP tool returned no text content")
	}

	return strings.Join(texts, "\n"), nil
}
