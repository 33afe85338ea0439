package app

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/interfaces"
	"github.com/bobmcallan/stockpit/internal/services/tracker"
)

// runRefreshLoop runs tracking cycles on a fixed interval. The first cycle
// starts immediately so a report is available shortly after boot.
func runRefreshLoop(ctx context.Context, trackerService interfaces.TrackerService, interval time.Duration, logger *common.Logger) {
	runScheduledCycle(ctx, trackerService, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Refresh scheduler: stopped")
			return
		case <-ticker.C:
			runScheduledCycle(ctx, trackerService, logger)
		}
	}
}

func runScheduledCycle(ctx context.Context, trackerService interfaces.TrackerService, logger *common.Logger) {
	start := time.Now()

	report, err := trackerService.RunCycle(ctx)
	switch {
	case err == nil:
		logger.Info().
			Int("positions", len(report.Positions)).
			Int("failures", len(report.Failures)).
			Dur("elapsed", time.Since(start)).
			Msg("Scheduled refresh: complete")
	case errors.Is(err, context.Canceled):
		// Shutdown raced the cycle; the loop exits on the next select.
	case errors.Is(err, tracker.ErrCycleInProgress):
		logger.Debug().Msg("Scheduled refresh: cycle already running, skipping tick")
	case errors.Is(err, tracker.ErrAllHoldingsFailed):
		logger.Error().Err(err).Msg("Scheduled refresh: no holdings could be fetched")
	default:
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Scheduled refresh: failed")
	}
}
