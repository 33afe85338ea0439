package server

import (
	"net/http"
	"runtime"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/bobmcallan/stockpit/internal/common"
)

// handleShutdown handles POST /api/shutdown requests for graceful server
// shutdown. Disabled in production.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// registerRoutes wires up all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System endpoints
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)
	mux.HandleFunc("/api/system/stats", s.handleSystemStats)
	mux.HandleFunc("/api/system/memstats", s.handleMemstats)

	// Portfolio endpoints
	mux.HandleFunc("/api/holdings", s.handleListHoldings)
	mux.HandleFunc("/api/portfolio/report", s.handlePortfolioReport)
	mux.HandleFunc("/api/portfolio/refresh", s.handleRefreshPortfolio)

	// Instrument endpoints
	mux.HandleFunc("/api/instruments/", s.routeInstruments)

	// Progress stream
	mux.HandleFunc("/ws/progress", s.handleProgressWS)

	// MCP over streamable HTTP, shared with the stdio proxy
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.app.MCPServer, mcpserver.WithStateLess(true)))
	mux.HandleFunc("/api/mcp/tools", s.handleToolCatalog)
}

// routeInstruments dispatches /api/instruments/{code}/... requests.
func (s *Server) routeInstruments(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/instruments/")
	parts := strings.SplitN(path, "/", 2)

	if parts[0] == "" {
		WriteError(w, http.StatusBadRequest, "Instrument code is required")
		return
	}
	code := parts[0]

	if len(parts) < 2 {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch parts[1] {
	case "history":
		s.handleInstrumentHistory(w, r, code)
	case "chart.png":
		s.handleInstrumentChart(w, r, code)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// --- System handlers ---

// handleHealth handles GET /api/health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion handles GET /api/version requests.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleConfig handles GET /api/config requests. It reports the effective
// runtime configuration for diagnostics.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	cfg := s.app.Config
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":       cfg.Environment,
		"holdings_file":     cfg.Holdings.File,
		"provider_base_url": cfg.Provider.BaseURL,
		"lookback_days":     cfg.Provider.LookbackDays,
		"fetch_delay":       cfg.Tracker.GetFetchDelay().String(),
		"refresh_interval":  cfg.Tracker.GetRefreshInterval().String(),
		"warn_margin":       cfg.Tracker.WarnMargin,
		"log_level":         cfg.Logging.Level,
	})
}

// handleSystemStats handles GET /api/system/stats requests.
func (s *Server) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	uptime := time.Since(s.app.StartupTime).Round(time.Second)
	cpuPercent, memPercent := s.collectSystemStats()

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":          common.GetVersion(),
		"build":            common.GetBuild(),
		"uptime":           uptime.String(),
		"started_at":       s.app.StartupTime.Format(time.RFC3339),
		"cpu_percent":      cpuPercent,
		"memory_percent":   memPercent,
		"goroutines":       runtime.NumGoroutine(),
		"progress_clients": s.app.Progress.ClientCount(),
		"cycle_running":    s.app.Tracker.Running(),
	})
}

// collectSystemStats samples CPU and memory usage. The 100ms CPU sample
// keeps the API call from blocking noticeably.
func (s *Server) collectSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to sample CPU usage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read memory usage")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// handleMemstats handles GET /api/system/memstats requests.
func (s *Server) handleMemstats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"heap_alloc_bytes": m.HeapAlloc,
		"heap_inuse_bytes": m.HeapInuse,
		"heap_idle_bytes":  m.HeapIdle,
		"sys_bytes":        m.Sys,
		"num_gc":           m.NumGC,
		"heap_alloc_mb":    float64(m.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":    float64(m.HeapInuse) / 1024 / 1024,
		"heap_idle_mb":     float64(m.HeapIdle) / 1024 / 1024,
		"sys_mb":           float64(m.Sys) / 1024 / 1024,
	})
}
