// Package signals provides technical indicator calculations
package signals

import (
	talib "github.com/markcheno/go-talib"

	"github.com/bobmcallan/stockpit/internal/models"
)

// Chart overlay periods for the short moving averages
const (
	PeriodMA5  = 5
	PeriodMA10 = 10
)

// Closes extracts the close series from bars, preserving order
func Closes(bars []models.HistoryBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// RollingSMA computes the simple moving average over values (oldest first),
// aligned to the input: entry i averages the window ending at i. Entries
// before the first complete window are zero, so consumers plotting the
// series must skip the first period-1 slots. Returns nil when the series is
// shorter than the period.
func RollingSMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	return talib.Sma(values, period)
}

// LatestSMA returns the most recent simple moving average of the close
// series, or 0 when there is not enough history
func LatestSMA(bars []models.HistoryBar, period int) float64 {
	sma := RollingSMA(Closes(bars), period)
	if len(sma) == 0 {
		return 0
	}
	return sma[len(sma)-1]
}
