// Package interfaces defines service contracts for StockPit
package interfaces

import (
	"context"

	"github.com/bobmcallan/stockpit/internal/models"
)

// HoldingStore loads the tracked holdings list
type HoldingStore interface {
	// Load re-reads the holdings file, preserving file order. Validation
	// failures are reported here, before any cycle runs; the tracker never
	// re-validates the fields it reads.
	Load() ([]models.Holding, error)
}

// QuoteService retrieves and derives per-instrument quote snapshots
type QuoteService interface {
	// Fetch retrieves the recent daily window for code and derives a
	// snapshot from it. Exactly one of the results is non-nil: provider
	// problems come back as a FetchFailure, never as a panic or an error
	// crossing this boundary.
	Fetch(ctx context.Context, code string, lookbackDays int) (*models.QuoteSnapshot, *models.FetchFailure)
}

// TrackerService runs refresh cycles over the holdings list
type TrackerService interface {
	// RunCycle walks all holdings once, in file order, and produces the
	// cycle's report. Returns ErrCycleInProgress when a cycle is already
	// running and ErrAllHoldingsFailed when nothing succeeded.
	RunCycle(ctx context.Context) (*models.PortfolioReport, error)

	// LastReport returns the most recent successful report, or nil when no
	// cycle has completed yet.
	LastReport() *models.PortfolioReport

	// Running reports whether a cycle is currently in flight.
	Running() bool
}

// ChartService renders instrument charts from a cycle's report
type ChartService interface {
	// RenderInstrumentChart renders a PNG price chart for one code held in
	// the report: close line, high/low envelope, short moving averages, and
	// the position's cost-price reference line.
	RenderInstrumentChart(report *models.PortfolioReport, code string) ([]byte, error)
}

// ProgressSink receives cycle progress events. Implementations must not
// block; the tracker treats publishing as fire-and-forget.
type ProgressSink interface {
	Publish(event models.ProgressEvent)
}
