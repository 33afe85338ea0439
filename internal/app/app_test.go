package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TestNewApp_InitializesAllServices verifies that NewApp creates an App with
// all services, clients, and the MCP server initialized and non-nil.
func TestNewApp_InitializesAllServices(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	if a.Config == nil {
		t.Error("Config is nil")
	}
	if a.Logger == nil {
		t.Error("Logger is nil")
	}
	if a.MarketClient == nil {
		t.Error("MarketClient is nil")
	}
	if a.Holdings == nil {
		t.Error("Holdings is nil")
	}
	if a.Quotes == nil {
		t.Error("Quotes is nil")
	}
	if a.Tracker == nil {
		t.Error("Tracker is nil")
	}
	if a.Charts == nil {
		t.Error("Charts is nil")
	}
	if a.Progress == nil {
		t.Error("Progress is nil")
	}
	if a.MCPServer == nil {
		t.Error("MCPServer is nil")
	}
	if a.StartupTime.IsZero() {
		t.Error("StartupTime is zero")
	}
}

// TestNewApp_RegistersAllTools verifies that NewApp registers all expected MCP tools.
func TestNewApp_RegistersAllTools(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	// Use in-process client to list tools
	c, err := newInProcessClient(t, a.MCPServer)
	if err != nil {
		t.Fatalf("Failed to create in-process client: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	toolsResult, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	expectedTools := []string{
		"get_version",
		"portfolio_report",
		"refresh_portfolio",
		"list_holdings",
		"instrument_history",
		"instrument_chart",
	}

	toolNames := make(map[string]bool)
	for _, tool := range toolsResult.Tools {
		toolNames[tool.Name] = true
	}

	for _, name := range expectedTools {
		if !toolNames[name] {
			t.Errorf("Expected tool %q not registered", name)
		}
	}

	if len(toolsResult.Tools) != len(expectedTools) {
		t.Errorf("Expected %d tools, got %d", len(expectedTools), len(toolsResult.Tools))
	}
}

// TestNewApp_GetVersionToolWorks verifies that the get_version tool works
// through a full App initialization.
func TestNewApp_GetVersionToolWorks(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	c, err := newInProcessClient(t, a.MCPServer)
	if err != nil {
		t.Fatalf("Failed to create in-process client: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Params.Name = "get_version"
	result, err := c.CallTool(ctx, req)
	if err != nil {
		t.Fatalf("get_version failed: %v", err)
	}

	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, "StockPit MCP Server") {
		t.Errorf("Expected 'StockPit MCP Server' in output, got: %s", text)
	}
	if !strings.Contains(text, "Status: OK") {
		t.Errorf("Expected 'Status: OK' in output, got: %s", text)
	}
}

// TestNewApp_ListHoldingsToolWorks verifies the list_holdings tool reads the
// configured holdings file through a full App initialization.
func TestNewApp_ListHoldingsToolWorks(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	c, err := newInProcessClient(t, a.MCPServer)
	if err != nil {
		t.Fatalf("Failed to create in-process client: %v", err)
	}
	defer c.Close()

	req := mcp.CallToolRequest{}
	req.Params.Name = "list_holdings"
	result, err := c.CallTool(context.Background(), req)
	if err != nil {
		t.Fatalf("list_holdings failed: %v", err)
	}

	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, "600036") {
		t.Errorf("Expected holding code '600036' in output, got: %s", text)
	}
	if !strings.Contains(text, "8%") {
		t.Errorf("Expected stop loss '8%%' in output, got: %s", text)
	}
}

// TestNewApp_CloseIsIdempotent verifies that calling Close multiple times
// does not panic.
func TestNewApp_CloseIsIdempotent(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	// Close twice — should not panic
	a.Close()
	a.Close()
}

// TestNewApp_InvalidConfigReturnsError verifies that an invalid config file
// returns a meaningful error.
func TestNewApp_InvalidConfigReturnsError(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.toml")
	os.WriteFile(configPath, []byte("{{{{invalid toml"), 0644)

	_, err := NewApp(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid config content, got nil")
	}
}

// TestNewApp_SchedulerDisabledByZeroInterval verifies that a refresh interval
// of zero leaves the scheduler unstarted.
func TestNewApp_SchedulerDisabledByZeroInterval(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	a.StartRefreshScheduler()
	if a.schedulerCancel != nil {
		t.Error("Expected scheduler to stay disabled with a zero refresh interval")
	}
}

// --- test helpers ---

// writeTestConfig creates a minimal stockpit.toml and holdings file in a temp
// directory for testing. Scheduled refreshes are disabled so no cycle runs
// against the real provider.
func writeTestConfig(t *testing.T) string {
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

[tracker]
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

// newInProcessClient creates an mcp-go in-process client connected to the given
// MCP server. Handles initialization handshake.
func newInProcessClient(t *testing.T, mcpServer *server.MCPServer) (*client.Client, error) {
	t.Helper()

	c, err := client.NewInProcessClient(mcpServer)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		return nil, err
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}
