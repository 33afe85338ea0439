// Package tracker runs the portfolio refresh cycle: sequential quote
// fetches paced by a rate limiter, metric folding, risk classification,
// and progress reporting.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/interfaces"
	"github.com/bobmcallan/stockpit/internal/models"
)

// DefaultFetchDelay is the minimum spacing between provider calls. The
// sequential one-instrument-at-a-time walk is deliberate: the upstream
// kline endpoint degrades under burst traffic, so the cycle trades speed
// for stability.
const DefaultFetchDelay = 200 * time.Millisecond

// Cycle-level errors surfaced to callers. Per-instrument problems stay
// inside the report as FetchFailure entries.
var (
	// ErrAllHoldingsFailed reports a cycle in which no holding produced a
	// snapshot. Not fatal to the process; the next cycle may succeed.
	ErrAllHoldingsFailed = errors.New("all holdings failed to fetch")

	// ErrCycleInProgress reports a refresh attempt while another cycle is
	// already walking the holdings list.
	ErrCycleInProgress = errors.New("a tracking cycle is already in progress")
)

// Service orchestrates refresh cycles over the holdings list.
type Service struct {
	store      interfaces.HoldingStore
	quotes     interfaces.QuoteService
	progress   interfaces.ProgressSink
	aggregator *Aggregator
	limiter    *rate.Limiter
	logger     *common.Logger

	lookbackDays int
	now          func() time.Time // injectable clock for testing

	mu         sync.Mutex
	running    bool
	lastReport *models.PortfolioReport
}

// NewService creates a tracker service. progress may be nil when nothing
// consumes cycle events. Tunables start at their defaults; use the Set
// methods before the first cycle to override them.
func NewService(store interfaces.HoldingStore, quotes interfaces.QuoteService, progress interfaces.ProgressSink, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		store:      store,
		quotes:     quotes,
		progress:   progress,
		aggregator: NewAggregator(NewClassifier(DefaultWarnMargin)),
		limiter:    rate.NewLimiter(rate.Every(DefaultFetchDelay), 1),
		logger:     logger,
		now:        time.Now,
	}
}

// SetFetchDelay overrides the minimum spacing between provider calls.
// Call before the first cycle.
func (s *Service) SetFetchDelay(d time.Duration) {
	if d > 0 {
		s.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// SetLookbackDays overrides the per-instrument history window. Call before
// the first cycle.
func (s *Service) SetLookbackDays(days int) {
	if days > 0 {
		s.lookbackDays = days
	}
}

// SetWarnMargin overrides the risk classifier's WARNING band. Call before
// the first cycle.
func (s *Service) SetWarnMargin(margin float64) {
	if margin > 0 {
		s.aggregator = NewAggregator(NewClassifier(margin))
	}
}

// RunCycle walks the holdings list once in file order: fetch, fold,
// classify, publish progress. Individual failures are recorded in the
// report and skipped; only a cycle where nothing succeeded comes back as
// ErrAllHoldingsFailed. Cancelling ctx aborts between holdings.
func (s *Service) RunCycle(ctx context.Context) (*models.PortfolioReport, error) {
	if !s.tryAcquire() {
		return nil, ErrCycleInProgress
	}
	defer s.release()

	holdings, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	cycleID := uuid.New().String()
	total := len(holdings)
	s.logger.Info().Str("cycle_id", cycleID).Int("holdings", total).Msg("Starting tracking cycle")

	report := &models.PortfolioReport{
		CycleID:   cycleID,
		Positions: make([]models.PositionMetrics, 0, total),
		Histories: make(map[string][]models.HistoryBar, total),
	}

	for i, holding := range holdings {
		// The limiter paces the provider and doubles as the cancellation
		// point between holdings.
		if err := s.limiter.Wait(ctx); err != nil {
			s.publish(models.ProgressEvent{
				CycleID:   cycleID,
				Stage:     models.ProgressStageAborted,
				Index:     i,
				Total:     total,
				Timestamp: s.now(),
			})
			s.logger.Warn().Str("cycle_id", cycleID).Int("completed", i).Msg("Tracking cycle aborted")
			return nil, fmt.Errorf("tracking cycle aborted: %w", err)
		}

		s.publish(models.ProgressEvent{
			CycleID:   cycleID,
			Stage:     models.ProgressStageFetching,
			Index:     i + 1,
			Total:     total,
			Code:      holding.Code,
			Name:      holding.Name,
			Timestamp: s.now(),
		})

		snapshot, failure := s.quotes.Fetch(ctx, holding.Code, s.lookbackDays)
		if failure != nil {
			report.Failures = append(report.Failures, *failure)
			s.publish(models.ProgressEvent{
				CycleID:   cycleID,
				Stage:     models.ProgressStageFailed,
				Index:     i + 1,
				Total:     total,
				Code:      holding.Code,
				Name:      holding.Name,
				Timestamp: s.now(),
			})
			s.logger.Warn().
				Str("cycle_id", cycleID).
				Str("code", holding.Code).
				Str("reason", string(failure.Reason)).
				Msg("Holding skipped for this cycle")
			continue
		}

		metrics := s.aggregator.FoldHolding(&report.Summary, holding, snapshot)
		report.Positions = append(report.Positions, metrics)
		report.Histories[holding.Code] = snapshot.History

		s.publish(models.ProgressEvent{
			CycleID:   cycleID,
			Stage:     models.ProgressStageDone,
			Index:     i + 1,
			Total:     total,
			Code:      holding.Code,
			Name:      holding.Name,
			Timestamp: s.now(),
		})
	}

	report.GeneratedAt = s.now()

	if total > 0 && len(report.Positions) == 0 {
		s.publish(models.ProgressEvent{
			CycleID:   cycleID,
			Stage:     models.ProgressStageComplete,
			Index:     total,
			Total:     total,
			Timestamp: s.now(),
		})
		s.logger.Error().
			Str("cycle_id", cycleID).
			Int("failures", len(report.Failures)).
			Msg("Every holding failed to fetch")
		return nil, ErrAllHoldingsFailed
	}

	s.setLastReport(report)
	s.publish(models.ProgressEvent{
		CycleID:   cycleID,
		Stage:     models.ProgressStageComplete,
		Index:     total,
		Total:     total,
		Timestamp: s.now(),
	})
	s.logger.Info().
		Str("cycle_id", cycleID).
		Int("positions", len(report.Positions)).
		Int("failures", len(report.Failures)).
		Float64("market_value", report.Summary.TotalMarketValue).
		Msg("Tracking cycle complete")

	return report, nil
}

// LastReport returns the most recent successfully completed report, or nil
// before the first successful cycle. Aborted and all-failed cycles never
// replace it.
func (s *Service) LastReport() *models.PortfolioReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// Running reports whether a cycle is currently walking the holdings list.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Service) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Service) setLastReport(report *models.PortfolioReport) {
	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()
}

// publish forwards an event to the progress sink when one is attached.
func (s *Service) publish(event models.ProgressEvent) {
	if s.progress == nil {
		return
	}
	s.progress.Publish(event)
}

// Ensure Service implements TrackerService
var _ interfaces.TrackerService = (*Service)(nil)
