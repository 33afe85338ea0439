package server

import (
	"net/http"

	"github.com/bobmcallan/stockpit/internal/models"
)

// buildToolCatalog returns the MCP tool catalog describing all active tools
// and their HTTP mappings. Used by GET /api/mcp/tools for tool discovery.
func buildToolCatalog() []models.ToolDefinition {
	return []models.ToolDefinition{
		// --- System ---
		{
			Name:        "get_version",
			Description: "Get the StockPit server version and status. Use this to verify connectivity.",
			Method:      "GET",
			Path:        "/api/version",
		},

		// --- Portfolio ---
		{
			Name:        "list_holdings",
			Description: "List the configured holdings: code, name, quantity, cost price and stop-loss threshold.",
			Method:      "GET",
			Path:        "/api/holdings",
		},
		{
			Name:        "portfolio_report",
			Description: "Get the last completed portfolio report with per-position metrics, totals and risk status.",
			Method:      "GET",
			Path:        "/api/portfolio/report",
		},
		{
			Name:        "refresh_portfolio",
			Description: "Run a tracking cycle now: fetch quotes for every holding and rebuild the report. Expect roughly 0.2s per holding.",
			Method:      "POST",
			Path:        "/api/portfolio/refresh",
		},

		// --- Instruments ---
		{
			Name:        "instrument_history",
			Description: "Get the daily OHLCV bars captured for one instrument in the latest report.",
			Method:      "GET",
			Path:        "/api/instruments/{code}/history",
			Params: []models.ParamDefinition{
				{
					Name:        "code",
					Type:        "string",
					Description: "Instrument code, e.g. '600036'",
					In:          "path",
					Required:    true,
				},
				{
					Name:        "days",
					Type:        "number",
					Description: "Limit output to the most recent N bars",
					In:          "query",
				},
			},
		},
		{
			Name:        "instrument_chart",
			Description: "Render a PNG price chart for one instrument from the latest report: closes, high/low envelope, MA5/MA10 and cost line.",
			Method:      "GET",
			Path:        "/api/instruments/{code}/chart.png",
			Params: []models.ParamDefinition{
				{
					Name:        "code",
					Type:        "string",
					Description: "Instrument code, e.g. '600036'",
					In:          "path",
					Required:    true,
				},
			},
		},
	}
}

func (s *Server) handleToolCatalog(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, buildToolCatalog())
}
