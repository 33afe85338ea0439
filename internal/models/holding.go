// Package models defines data structures for StockPit
package models

// Holding represents one recorded position in the tracked portfolio.
// Holdings are immutable input loaded from the holdings file; the tracker
// never mutates them. StopLossPct is a fraction of cost (0.08 = 8% maximum
// tolerated loss before the position is flagged as breaching).
type Holding struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	CostPrice   float64 `json:"cost_price"`
	StopLossPct float64 `json:"stop_loss_pct"`
}
