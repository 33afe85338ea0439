package app

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/models"
	"github.com/bobmcallan/stockpit/internal/signals"
)

func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatSignedMoney(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.2f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func formatSignedPct(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

// formatPortfolioReport formats a cycle report as markdown
func formatPortfolioReport(report *models.PortfolioReport, includeFailures bool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Portfolio Report\n\n")
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	if !common.IsFresh(report.GeneratedAt, common.FreshnessReport) {
		sb.WriteString("**Note:** this report is stale; run refresh_portfolio for current prices\n")
	}
	sb.WriteString(fmt.Sprintf("**Market Value:** %s\n", formatMoney(report.Summary.TotalMarketValue)))
	sb.WriteString(fmt.Sprintf("**Unrealized P/L:** %s\n", formatSignedMoney(report.Summary.TotalUnrealizedProfit)))
	sb.WriteString(fmt.Sprintf("**Day P/L:** %s\n\n", formatSignedMoney(report.Summary.TotalDayProfit)))

	// Positions table, in holdings-file order
	if len(report.Positions) > 0 {
		sb.WriteString("## Positions\n\n")
		sb.WriteString("| Code | Name | Qty | Cost | Price | Day % | Value | P/L | P/L % | Day P/L | Risk |\n")
		sb.WriteString("|------|------|-----|------|-------|-------|-------|-----|-------|---------|------|\n")
		for _, p := range report.Positions {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.0f | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				p.Code, p.Name, p.Quantity,
				formatMoney(p.CostPrice), formatMoney(p.CurrentPrice), formatSignedPct(p.PctChange),
				formatMoney(p.MarketValue), formatSignedMoney(p.UnrealizedProfit),
				formatSignedPct(p.UnrealizedProfitPct), formatSignedMoney(p.DayProfit),
				string(p.RiskStatus)))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No positions in this cycle.\n\n")
	}

	if includeFailures && len(report.Failures) > 0 {
		sb.WriteString("## Fetch Failures\n\n")
		for _, f := range report.Failures {
			if f.Detail != "" {
				sb.WriteString(fmt.Sprintf("- **%s**: %s (%s)\n", f.Code, f.Reason, f.Detail))
			} else {
				sb.WriteString(fmt.Sprintf("- **%s**: %s\n", f.Code, f.Reason))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatHoldingsList formats the configured holdings as markdown
func formatHoldingsList(list []models.Holding) string {
	var sb strings.Builder

	sb.WriteString("# Tracked Holdings\n\n")
	if len(list) == 0 {
		sb.WriteString("No holdings configured.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%d instruments configured.\n\n", len(list)))
	sb.WriteString("| Code | Name | Qty | Cost | Stop Loss |\n")
	sb.WriteString("|------|------|-----|------|-----------|\n")
	for _, h := range list {
		sb.WriteString(fmt.Sprintf("| %s | %s | %.0f | %s | %g%% |\n",
			h.Code, h.Name, h.Quantity, formatMoney(h.CostPrice), h.StopLossPct*100))
	}

	return sb.String()
}

// formatInstrumentHistory formats one instrument's daily bars as markdown.
// days limits the table to the most recent N bars; the moving averages are
// always computed over the full window.
func formatInstrumentHistory(report *models.PortfolioReport, code string, bars []models.HistoryBar, days int) string {
	name := code
	for _, p := range report.Positions {
		if p.Code == code {
			name = p.Name
			break
		}
	}

	window := bars
	if days > 0 && days < len(bars) {
		window = bars[len(bars)-days:]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s (%s) Daily History\n\n", name, code))
	sb.WriteString(fmt.Sprintf("**Bars:** %d (showing %d)\n", len(bars), len(window)))
	sb.WriteString(fmt.Sprintf("**Last Close:** %s\n", formatMoney(bars[len(bars)-1].Close)))
	if ma5 := signals.LatestSMA(bars, signals.PeriodMA5); ma5 > 0 {
		sb.WriteString(fmt.Sprintf("**MA5:** %s\n", formatMoney(ma5)))
	}
	if ma10 := signals.LatestSMA(bars, signals.PeriodMA10); ma10 > 0 {
		sb.WriteString(fmt.Sprintf("**MA10:** %s\n", formatMoney(ma10)))
	}
	sb.WriteString("\n")

	sb.WriteString("| Date | Open | High | Low | Close | Volume |\n")
	sb.WriteString("|------|------|------|-----|-------|--------|\n")
	for _, b := range window {
		sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f | %.2f | %d |\n",
			b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume))
	}

	return sb.String()
}
