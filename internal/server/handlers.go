package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/services/chart"
	"github.com/bobmcallan/stockpit/internal/services/tracker"
)

// handleListHoldings handles GET /api/holdings requests.
func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	list, err := s.app.Holdings.Load()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load holdings")
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load holdings: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": list,
		"count":    len(list),
	})
}

// handlePortfolioReport handles GET /api/portfolio/report requests. It
// returns the last completed report without triggering a fetch.
func (s *Server) handlePortfolioReport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report := s.app.Tracker.LastReport()
	if report == nil {
		WriteErrorWithCode(w, http.StatusNotFound, "No report available yet; trigger a refresh first", "NO_REPORT")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"report":  report,
		"stale":   !common.IsFresh(report.GeneratedAt, common.FreshnessReport),
		"running": s.app.Tracker.Running(),
	})
}

// handleRefreshPortfolio handles POST /api/portfolio/refresh requests. It
// runs a full tracking cycle synchronously and returns the new report.
func (s *Server) handleRefreshPortfolio(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	report, err := s.app.Tracker.RunCycle(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, tracker.ErrCycleInProgress):
			WriteErrorWithCode(w, http.StatusConflict, "A refresh cycle is already running", "CYCLE_IN_PROGRESS")
		case errors.Is(err, tracker.ErrAllHoldingsFailed):
			WriteErrorWithCode(w, http.StatusBadGateway, "No holding could be fetched from the quote provider", "ALL_HOLDINGS_FAILED")
		default:
			s.logger.Error().Err(err).Msg("Refresh cycle failed")
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Refresh failed: %v", err))
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"report": report,
		"stale":  false,
	})
}

// handleInstrumentHistory handles GET /api/instruments/{code}/history
// requests, serving the daily bars captured by the latest report.
func (s *Server) handleInstrumentHistory(w http.ResponseWriter, r *http.Request, code string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report := s.app.Tracker.LastReport()
	if report == nil {
		WriteErrorWithCode(w, http.StatusNotFound, "No report available yet; trigger a refresh first", "NO_REPORT")
		return
	}

	bars, ok := report.Histories[code]
	if !ok || len(bars) == 0 {
		WriteErrorWithCode(w, http.StatusNotFound, fmt.Sprintf("No history for %s in the latest report", code), "UNKNOWN_CODE")
		return
	}

	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		if n < len(bars) {
			bars = bars[len(bars)-n:]
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"code":         code,
		"generated_at": report.GeneratedAt,
		"bars":         bars,
		"count":        len(bars),
	})
}

// handleInstrumentChart handles GET /api/instruments/{code}/chart.png
// requests, rendering a PNG price chart from the latest report.
func (s *Server) handleInstrumentChart(w http.ResponseWriter, r *http.Request, code string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report := s.app.Tracker.LastReport()
	if report == nil {
		WriteErrorWithCode(w, http.StatusNotFound, "No report available yet; trigger a refresh first", "NO_REPORT")
		return
	}

	png, err := s.app.Charts.RenderInstrumentChart(report, code)
	if err != nil {
		switch {
		case errors.Is(err, chart.ErrCodeNotInReport):
			WriteErrorWithCode(w, http.StatusNotFound, fmt.Sprintf("No history for %s in the latest report", code), "UNKNOWN_CODE")
		case errors.Is(err, chart.ErrInsufficientHistory):
			WriteErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), "INSUFFICIENT_HISTORY")
		default:
			s.logger.Error().Err(err).Str("code", code).Msg("Chart render failed")
			WriteError(w, http.StatusInternalServerError, "Chart render failed")
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handleProgressWS upgrades GET /ws/progress to a WebSocket subscription
// that streams per-holding progress events during tracking cycles.
func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	s.app.Progress.ServeWS(w, r)
}
