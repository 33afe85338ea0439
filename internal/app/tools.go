package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the StockPit MCP server version and status. Use this to verify connectivity."),
	)
}

// createPortfolioReportTool returns the portfolio_report tool definition
func createPortfolioReportTool() mcp.Tool {
	return mcp.NewTool("portfolio_report",
		mcp.WithDescription("Get the latest portfolio tracking report: per-position metrics, portfolio totals, and stop-loss risk status from the most recent refresh cycle. Does not fetch new quotes."),
		mcp.WithBoolean("include_failures",
			mcp.Description("Include the per-instrument fetch failures section (default: true)"),
		),
	)
}

// createRefreshPortfolioTool returns the refresh_portfolio tool definition
func createRefreshPortfolioTool() mcp.Tool {
	return mcp.NewTool("refresh_portfolio",
		mcp.WithDescription("Run a tracking cycle now: fetch fresh quotes for every holding, recompute metrics and risk status, and return the new report. Fetches are paced, so expect roughly 0.2s per holding."),
	)
}

// createListHoldingsTool returns the list_holdings tool definition
func createListHoldingsTool() mcp.Tool {
	return mcp.NewTool("list_holdings",
		mcp.WithDescription("List the tracked holdings as configured: code, name, quantity, cost price, and stop-loss threshold. Reads the holdings file directly; no quotes are fetched."),
	)
}

// createInstrumentHistoryTool returns the instrument_history tool definition
func createInstrumentHistoryTool() mcp.Tool {
	return mcp.NewTool("instrument_history",
		mcp.WithDescription("Get recent daily OHLCV bars for one tracked instrument from the latest report, with 5- and 10-day moving averages."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Instrument code as it appears in the holdings file (e.g., '600036')"),
		),
		mcp.WithNumber("days",
			mcp.Description("Limit the table to the most recent N bars (default: all bars in the window)"),
		),
	)
}

// createInstrumentChartTool returns the instrument_chart tool definition
func createInstrumentChartTool() mcp.Tool {
	return mcp.NewTool("instrument_chart",
		mcp.WithDescription("Render a price chart for one tracked instrument from the latest report: daily closes, high/low envelope, MA5/MA10 overlays, and the position's cost-price line. Returns a PNG image."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Instrument code as it appears in the holdings file (e.g., '600036')"),
		),
	)
}
