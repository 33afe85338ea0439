package tracker

import "github.com/bobmcallan/stockpit/internal/models"

// DefaultWarnMargin is the width of the WARNING band above the stop level,
// expressed as a fraction of cost.
const DefaultWarnMargin = 0.03

// Classifier assigns a risk status from a position's unrealized profit
// against its configured stop-loss. Pure, no I/O, no mutable state.
type Classifier struct {
	warnMargin float64
}

// NewClassifier creates a risk classifier. warnMargin is the WARNING band
// width as a fraction of cost; zero or negative falls back to the default.
func NewClassifier(warnMargin float64) *Classifier {
	if warnMargin <= 0 {
		warnMargin = DefaultWarnMargin
	}
	return &Classifier{warnMargin: warnMargin}
}

// Classify maps an unrealized profit percentage and a stop-loss threshold
// to a risk status. distance is how far the position sits above its stop
// level, as a fraction of cost. The formula is applied literally, so a
// position currently in profit still breaches when its gain sits below the
// configured threshold.
func (c *Classifier) Classify(unrealizedProfitPct, stopLossPct float64) models.RiskStatus {
	distance := unrealizedProfitPct/100 - stopLossPct
	switch {
	case distance < 0:
		return models.RiskBreach
	case distance < c.warnMargin:
		return models.RiskWarning
	default:
		return models.RiskSafe
	}
}
