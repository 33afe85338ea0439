// Package interfaces defines service contracts for StockPit
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/stockpit/internal/models"
)

// MarketDataClient provides per-instrument daily history from the upstream
// market-data provider. Implementations are expected to pace their own
// outbound requests; callers add cycle-level spacing on top.
type MarketDataClient interface {
	// FetchDailyHistory retrieves forward-adjusted daily bars for one
	// instrument code over [start, end], ordered ascending by date.
	// An empty slice with a nil error means the provider has no rows for
	// the window; that is not a transport error.
	FetchDailyHistory(ctx context.Context, code string, start, end time.Time) ([]models.HistoryBar, error)
}
