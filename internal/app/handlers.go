package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/interfaces"
	"github.com/bobmcallan/stockpit/internal/services/tracker"
)

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("StockPit MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handlePortfolioReport implements the portfolio_report tool
func handlePortfolioReport(trackerService interfaces.TrackerService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		includeFailures := request.GetBool("include_failures", true)

		report := trackerService.LastReport()
		if report == nil {
			return errorResult("No report available yet. Run refresh_portfolio to start a tracking cycle."), nil
		}

		markdown := formatPortfolioReport(report, includeFailures)
		return textResult(markdown), nil
	}
}

// handleRefreshPortfolio implements the refresh_portfolio tool
func handleRefreshPortfolio(trackerService interfaces.TrackerService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report, err := trackerService.RunCycle(ctx)
		if err != nil {
			switch {
			case errors.Is(err, tracker.ErrCycleInProgress):
				return errorResult("A refresh cycle is already running. Use portfolio_report to read the last completed report."), nil
			case errors.Is(err, tracker.ErrAllHoldingsFailed):
				return errorResult("Refresh failed: no holding could be fetched. Check connectivity to the quote provider."), nil
			default:
				logger.Error().Err(err).Msg("Manual refresh failed")
				return errorResult(fmt.Sprintf("Refresh error: %v", err)), nil
			}
		}

		markdown := formatPortfolioReport(report, true)
		return textResult(markdown), nil
	}
}

// handleListHoldings implements the list_holdings tool
func handleListHoldings(store interfaces.HoldingStore, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := store.Load()
		if err != nil {
			logger.Error().Err(err).Msg("List holdings failed")
			return errorResult(fmt.Sprintf("Error loading holdings: %v", err)), nil
		}

		markdown := formatHoldingsList(list)
		return textResult(markdown), nil
	}
}

// handleInstrumentHistory implements the instrument_history tool
func handleInstrumentHistory(trackerService interfaces.TrackerService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return errorResult("Error: code parameter is required"), nil
		}

		days := request.GetInt("days", 0)

		report := trackerService.LastReport()
		if report == nil {
			return errorResult("No report available yet. Run refresh_portfolio to start a tracking cycle."), nil
		}

		bars, ok := report.Histories[code]
		if !ok || len(bars) == 0 {
			return errorResult(fmt.Sprintf("No history for %s in the latest report. Check the code against list_holdings.", code)), nil
		}

		markdown := formatInstrumentHistory(report, code, bars, days)
		return textResult(markdown), nil
	}
}

// handleInstrumentChart implements the instrument_chart tool
func handleInstrumentChart(trackerService interfaces.TrackerService, chartService interfaces.ChartService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return errorResult("Error: code parameter is required"), nil
		}

		report := trackerService.LastReport()
		if report == nil {
			return errorResult("No report available yet. Run refresh_portfolio to start a tracking cycle."), nil
		}

		png, err := chartService.RenderInstrumentChart(report, code)
		if err != nil {
			logger.Error().Err(err).Str("code", code).Msg("Chart render failed")
			return errorResult(fmt.Sprintf("No chart for %s: %v. Check the code against list_holdings.", code, err)), nil
		}

		return imageResult(png, fmt.Sprintf("%s price chart (%d bars)", code, len(report.Histories[code]))), nil
	}
}

// Helper functions

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

func imageResult(png []byte, caption string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(caption),
			mcp.NewImageContent(base64.StdEncoding.EncodeToString(png), "image/png"),
		},
	}
}
