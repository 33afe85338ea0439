// Package chart renders instrument price charts from cycle reports
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/interfaces"
	"github.com/bobmcallan/stockpit/internal/models"
	"github.com/bobmcallan/stockpit/internal/signals"
)

// Chart errors the HTTP layer maps to client-facing statuses.
var (
	ErrCodeNotInReport     = errors.New("instrument has no history in this report")
	ErrInsufficientHistory = errors.New("not enough history to render a chart")
)

// Service renders PNG charts from the latest cycle's histories.
type Service struct {
	logger *common.Logger
}

// NewService creates a chart service.
func NewService(logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{logger: logger}
}

// RenderInstrumentChart renders the daily chart for one code out of the
// report: close line, high/low envelope, MA5/MA10 overlays, and the
// position's cost-price reference line. The renderer draws line series
// only, so the high/low envelope stands in for candle wicks.
func (s *Service) RenderInstrumentChart(report *models.PortfolioReport, code string) ([]byte, error) {
	if report == nil {
		return nil, ErrCodeNotInReport
	}
	bars, ok := report.Histories[code]
	if !ok {
		return nil, ErrCodeNotInReport
	}
	if len(bars) < 2 {
		return nil, fmt.Errorf("%w: %d bars for %s", ErrInsufficientHistory, len(bars), code)
	}

	xValues := make([]time.Time, len(bars))
	closeY := make([]float64, len(bars))
	highY := make([]float64, len(bars))
	lowY := make([]float64, len(bars))
	for i, b := range bars {
		xValues[i] = b.Date
		closeY[i] = b.Close
		highY[i] = b.High
		lowY[i] = b.Low
	}

	envelopeStyle := chart.Style{
		StrokeColor: drawing.ColorFromHex("d1d5db"), // gray-300
		StrokeWidth: 1.0,
	}
	series := []chart.Series{
		chart.TimeSeries{
			Name:    "High",
			Style:   envelopeStyle,
			XValues: xValues,
			YValues: highY,
		},
		chart.TimeSeries{
			Name:    "Low",
			Style:   envelopeStyle,
			XValues: xValues,
			YValues: lowY,
		},
		chart.TimeSeries{
			Name: "Close",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
				StrokeWidth: 2.5,
			},
			XValues: xValues,
			YValues: closeY,
		},
	}

	series = appendSMASeries(series, xValues, closeY, signals.PeriodMA5, "MA5", "f59e0b")   // amber-500
	series = appendSMASeries(series, xValues, closeY, signals.PeriodMA10, "MA10", "8b5cf6") // violet-500

	if position := findPosition(report, code); position != nil {
		costY := make([]float64, len(bars))
		for i := range costY {
			costY[i] = position.CostPrice
		}
		series = append(series, chart.TimeSeries{
			Name: "Cost",
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5.0, 3.0},
			},
			XValues: xValues,
			YValues: costY,
		})
	}

	graph := chart.Chart{
		Title:  chartTitle(report, code),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	s.logger.Debug().Str("code", code).Int("bars", len(bars)).Int("bytes", buf.Len()).Msg("Instrument chart rendered")
	return buf.Bytes(), nil
}

// appendSMASeries adds a moving-average overlay, skipping the zero-valued
// warm-up entries so the line starts at the first complete window. Needs
// two plotted points to draw anything.
func appendSMASeries(series []chart.Series, xValues []time.Time, closes []float64, period int, name, hexColor string) []chart.Series {
	sma := signals.RollingSMA(closes, period)
	if sma == nil || len(sma)-(period-1) < 2 {
		return series
	}
	return append(series, chart.TimeSeries{
		Name: name,
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex(hexColor),
			StrokeWidth: 1.5,
		},
		XValues: xValues[period-1:],
		YValues: sma[period-1:],
	})
}

// findPosition returns the report row for code, or nil when the code only
// exists in histories.
func findPosition(report *models.PortfolioReport, code string) *models.PositionMetrics {
	for i := range report.Positions {
		if report.Positions[i].Code == code {
			return &report.Positions[i]
		}
	}
	return nil
}

// chartTitle prefers the holding's display name over the bare code.
func chartTitle(report *models.PortfolioReport, code string) string {
	if position := findPosition(report, code); position != nil && position.Name != "" {
		return fmt.Sprintf("%s (%s)", position.Name, code)
	}
	return code
}

// Ensure Service implements ChartService
var _ interfaces.ChartService = (*Service)(nil)
