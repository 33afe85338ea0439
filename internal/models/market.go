// Package models defines data structures for StockPit
package models

import (
	"time"
)

// HistoryBar represents a single trading session's price data for one
// instrument. Series are always ordered ascending by date.
type HistoryBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// QuoteSnapshot is the derived current-price state for one instrument at one
// refresh cycle. CurrentPrice is the close of the most recent session; when
// the provider streams intraday updates into the latest row, that row carries
// the current intraday price. History is never empty when a snapshot exists.
//
// Snapshots are transient: recomputed every cycle, never persisted.
type QuoteSnapshot struct {
	Code              string       `json:"code"`
	CurrentPrice      float64      `json:"current_price"`
	PctChange         float64      `json:"pct_change"`           // percent change vs prior session, 0 if no prior session
	DayProfitPerShare float64      `json:"day_profit_per_share"` // current close - previous close, 0 if no prior session
	History           []HistoryBar `json:"history"`
}

// FailureReason classifies why a holding produced no snapshot this cycle.
type FailureReason string

const (
	// FailureEmptyHistory: the provider returned no rows for the requested
	// window (delisted, suspended, wrong code, or no trading in range).
	FailureEmptyHistory FailureReason = "EMPTY_HISTORY"
	// FailureProviderError: transport failure, timeout, malformed response,
	// or rate-limit rejection.
	FailureProviderError FailureReason = "PROVIDER_ERROR"
)

// FetchFailure is the soft-failure outcome for one instrument in one cycle.
// The holding is skipped for the cycle; nothing escalates unless every
// holding fails. Detail is for logs and operator-facing output only.
type FetchFailure struct {
	Code   string        `json:"code"`
	Reason FailureReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}
