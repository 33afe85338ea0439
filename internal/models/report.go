// Package models defines data structures for StockPit
package models

import (
	"time"
)

// RiskStatus labels a position's standing against its stop-loss threshold.
type RiskStatus string

const (
	RiskSafe    RiskStatus = "SAFE"
	RiskWarning RiskStatus = "WARNING"
	RiskBreach  RiskStatus = "BREACH"
)

// PositionMetrics holds the derived financial metrics for one successfully
// fetched holding. Recomputed every cycle; one row per holding that yielded
// a snapshot. Failed holdings produce no row.
type PositionMetrics struct {
	Code                string     `json:"code"`
	Name                string     `json:"name"`
	Quantity            float64    `json:"quantity"`
	CostPrice           float64    `json:"cost_price"`
	CurrentPrice        float64    `json:"current_price"`
	PctChange           float64    `json:"pct_change"`
	MarketValue         float64    `json:"market_value"`          // current_price * quantity
	UnrealizedProfit    float64    `json:"unrealized_profit"`     // (current_price - cost_price) * quantity
	UnrealizedProfitPct float64    `json:"unrealized_profit_pct"` // (current_price - cost_price) / cost_price * 100
	DayProfit           float64    `json:"day_profit"`            // day_profit_per_share * quantity
	RiskStatus          RiskStatus `json:"risk_status"`
	StopLossPct         float64    `json:"stop_loss_pct"`
}

// PortfolioSummary accumulates portfolio-level totals over exactly the
// successful positions of one cycle. Reset to zero at the start of every
// cycle; failed fetches are excluded from totals, not counted as zero.
type PortfolioSummary struct {
	TotalMarketValue      float64 `json:"total_market_value"`
	TotalUnrealizedProfit float64 `json:"total_unrealized_profit"`
	TotalDayProfit        float64 `json:"total_day_profit"`
}

// PortfolioReport is the complete output of one refresh cycle: the ordered
// position metrics, the folded summary, the per-code failures, and the raw
// history per code for on-demand charting. Positions preserve holdings-file
// order.
type PortfolioReport struct {
	CycleID     string                  `json:"cycle_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Positions   []PositionMetrics       `json:"positions"`
	Summary     PortfolioSummary        `json:"summary"`
	Failures    []FetchFailure          `json:"failures,omitempty"`
	Histories   map[string][]HistoryBar `json:"histories,omitempty"`
}

// Progress event stages
const (
	ProgressStageFetching = "fetching"
	ProgressStageDone     = "done"
	ProgressStageFailed   = "failed"
	ProgressStageComplete = "cycle_complete"
	ProgressStageAborted  = "cycle_aborted"
)

// ProgressEvent is broadcast via WebSocket as a cycle walks the holdings
// list. Purely observational: dropped or unconsumed events never affect
// cycle semantics. Index is 1-based for display.
type ProgressEvent struct {
	CycleID   string    `json:"cycle_id"`
	Stage     string    `json:"stage"`
	Index     int       `json:"index"`
	Total     int       `json:"total"`
	Code      string    `json:"code,omitempty"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
