// Package quote derives per-instrument price snapshots from daily history
package quote

import (
	"context"
	"time"

	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/interfaces"
	"github.com/bobmcallan/stockpit/internal/models"
)

// DefaultLookbackDays is the history window requested when the caller does
// not supply a positive one. Ten calendar days is enough for two trading
// sessions across any exchange holiday run.
const DefaultLookbackDays = 10

// Service implements QuoteService on top of a daily-history market client.
type Service struct {
	client       interfaces.MarketDataClient
	fetchTimeout time.Duration
	logger       *common.Logger
	now          func() time.Time // injectable clock for testing
}

// NewService creates a quote service. fetchTimeout bounds each upstream
// call; zero or negative falls back to 10 seconds.
func NewService(client interfaces.MarketDataClient, fetchTimeout time.Duration, logger *common.Logger) *Service {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		client:       client,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Fetch requests up to lookbackDays of daily bars for code, ending today,
// and derives a snapshot from the most recent closes. Provider errors and
// empty histories come back as a FetchFailure instead of an error so a
// single bad instrument never aborts a whole tracking cycle.
func (s *Service) Fetch(ctx context.Context, code string, lookbackDays int) (*models.QuoteSnapshot, *models.FetchFailure) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	end := s.now()
	start := end.AddDate(0, 0, -lookbackDays)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	bars, err := s.client.FetchDailyHistory(fetchCtx, code, start, end)
	if err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("Daily history fetch failed")
		return nil, &models.FetchFailure{
			Code:   code,
			Reason: models.FailureProviderError,
			Detail: err.Error(),
		}
	}
	if len(bars) == 0 {
		s.logger.Warn().Str("code", code).Int("lookback_days", lookbackDays).Msg("Provider returned no daily bars")
		return nil, &models.FetchFailure{
			Code:   code,
			Reason: models.FailureEmptyHistory,
			Detail: "no daily bars in lookback window",
		}
	}

	snapshot := buildSnapshot(code, bars)
	s.logger.Debug().
		Str("code", code).
		Int("bars", len(bars)).
		Float64("price", snapshot.CurrentPrice).
		Msg("Quote snapshot derived")
	return snapshot, nil
}

// buildSnapshot derives the current price and day-change figures from the
// last two closes. A single-bar history yields zero change rather than an
// error so freshly listed instruments still report a price.
func buildSnapshot(code string, bars []models.HistoryBar) *models.QuoteSnapshot {
	last := bars[len(bars)-1].Close
	snapshot := &models.QuoteSnapshot{
		Code:         code,
		CurrentPrice: last,
		History:      bars,
	}
	if len(bars) >= 2 {
		prev := bars[len(bars)-2].Close
		snapshot.DayProfitPerShare = last - prev
		if prev != 0 {
			snapshot.PctChange = (last - prev) / prev * 100
		}
	}
	return snapshot
}

// Ensure Service implements QuoteService
var _ interfaces.QuoteService = (*Service)(nil)
