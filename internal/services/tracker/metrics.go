package tracker

import "github.com/bobmcallan/stockpit/internal/models"

// Aggregator folds per-holding snapshots into position metrics and running
// portfolio totals. Pure arithmetic, no I/O. Failed fetches never reach it;
// they contribute nothing to totals rather than counting as zero.
type Aggregator struct {
	classifier *Classifier
}

// NewAggregator creates an aggregator. A nil classifier gets the default
// WARNING band.
func NewAggregator(classifier *Classifier) *Aggregator {
	if classifier == nil {
		classifier = NewClassifier(DefaultWarnMargin)
	}
	return &Aggregator{classifier: classifier}
}

// FoldHolding derives the metrics row for one successfully fetched holding
// and adds its contribution to summary. The caller zeroes the summary at
// cycle start and folds outcomes in holding-list order.
func (a *Aggregator) FoldHolding(summary *models.PortfolioSummary, holding models.Holding, snapshot *models.QuoteSnapshot) models.PositionMetrics {
	marketValue := snapshot.CurrentPrice * holding.Quantity
	unrealizedProfit := (snapshot.CurrentPrice - holding.CostPrice) * holding.Quantity
	var unrealizedProfitPct float64
	if holding.CostPrice > 0 {
		unrealizedProfitPct = (snapshot.CurrentPrice - holding.CostPrice) / holding.CostPrice * 100
	}
	dayProfit := snapshot.DayProfitPerShare * holding.Quantity

	summary.TotalMarketValue += marketValue
	summary.TotalUnrealizedProfit += unrealizedProfit
	summary.TotalDayProfit += dayProfit

	return models.PositionMetrics{
		Code:                holding.Code,
		Name:                holding.Name,
		Quantity:            holding.Quantity,
		CostPrice:           holding.CostPrice,
		CurrentPrice:        snapshot.CurrentPrice,
		PctChange:           snapshot.PctChange,
		MarketValue:         marketValue,
		UnrealizedProfit:    unrealizedProfit,
		UnrealizedProfitPct: unrealizedProfitPct,
		DayProfit:           dayProfit,
		RiskStatus:          a.classifier.Classify(unrealizedProfitPct, holding.StopLossPct),
		StopLossPct:         holding.StopLossPct,
	}
}
