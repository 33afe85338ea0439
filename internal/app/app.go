package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/stockpit/internal/clients/eastmoney"
	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/holdings"
	"github.com/bobmcallan/stockpit/internal/interfaces"
	"github.com/bobmcallan/stockpit/internal/services/chart"
	"github.com/bobmcallan/stockpit/internal/services/quote"
	"github.com/bobmcallan/stockpit/internal/services/tracker"
)

// App holds all initialized services, clients, and the MCP server.
// It is the shared core behind cmd/stockpit-server; the stdio binary talks
// to it over HTTP rather than embedding it.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	MarketClient interfaces.MarketDataClient
	Holdings     interfaces.HoldingStore
	Quotes       interfaces.QuoteService
	Tracker      interfaces.TrackerService
	Charts       interfaces.ChartService
	Progress     *tracker.Hub
	MCPServer    *server.MCPServer
	StartupTime  time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes the quote client, holdings store, services, and the MCP
// server. configPath may be empty, in which case the default resolution logic
// is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	// Get binary directory for self-contained operation
	binDir := getBinaryDir()

	// Load configuration - check provided path, STOCKPIT_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("STOCKPIT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "stockpit.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/stockpit.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve a relative holdings path against the binary directory when the
	// file is not present in the working directory.
	if config.Holdings.File != "" && !filepath.IsAbs(config.Holdings.File) {
		if _, statErr := os.Stat(config.Holdings.File); os.IsNotExist(statErr) {
			config.Holdings.File = filepath.Join(binDir, config.Holdings.File)
		}
	}

	// Initialize logger
	logger := common.NewLoggerFromConfig(config.Logging)

	// Initialize the quote provider client
	clientOpts := []eastmoney.ClientOption{
		eastmoney.WithLogger(logger),
		eastmoney.WithBaseURL(config.Provider.BaseURL),
		eastmoney.WithTimeout(config.Provider.GetTimeout()),
	}
	if config.Provider.RateLimit > 0 {
		clientOpts = append(clientOpts, eastmoney.WithRateLimit(config.Provider.RateLimit))
	}
	if config.Provider.BypassProxy {
		clientOpts = append(clientOpts, eastmoney.WithProxyBypass())
	}
	marketClient := eastmoney.NewClient(clientOpts...)

	// Initialize store and services
	holdingStore := holdings.NewStore(config.Holdings.File, logger)
	quoteService := quote.NewService(marketClient, config.Tracker.GetFetchTimeout(), logger)
	progressHub := tracker.NewHub(logger)

	trackerService := tracker.NewService(holdingStore, quoteService, progressHub, logger)
	trackerService.SetFetchDelay(config.Tracker.GetFetchDelay())
	trackerService.SetLookbackDays(config.Provider.LookbackDays)
	trackerService.SetWarnMargin(config.Tracker.WarnMargin)

	chartService := chart.NewService(logger)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"stockpit",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:       config,
		Logger:       logger,
		MarketClient: marketClient,
		Holdings:     holdingStore,
		Quotes:       quoteService,
		Tracker:      trackerService,
		Charts:       chartService,
		Progress:     progressHub,
		MCPServer:    mcpServer,
		StartupTime:  startupStart,
	}

	// Register all MCP tools
	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
// Shutdown order: cancel the refresh scheduler, stop the progress hub.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Progress != nil {
		a.Progress.Stop()
	}
}

// StartProgressHub launches the WebSocket broadcast loop for cycle progress.
func (a *App) StartProgressHub() {
	go a.Progress.Run()
}

// StartRefreshScheduler launches the background refresh goroutine. A zero
// refresh interval disables scheduled cycles; manual refreshes still work.
func (a *App) StartRefreshScheduler() {
	interval := a.Config.Tracker.GetRefreshInterval()
	if interval <= 0 {
		a.Logger.Info().Msg("Refresh scheduler disabled")
		return
	}

	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go runRefreshLoop(schedulerCtx, a.Tracker, interval, a.Logger)
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createPortfolioReportTool(), handlePortfolioReport(a.Tracker, logger))
	s.AddTool(createRefreshPortfolioTool(), handleRefreshPortfolio(a.Tracker, logger))
	s.AddTool(createListHoldingsTool(), handleListHoldings(a.Holdings, logger))
	s.AddTool(createInstrumentHistoryTool(), handleInstrumentHistory(a.Tracker, logger))
	s.AddTool(createInstrumentChartTool(), handleInstrumentChart(a.Tracker, a.Charts, logger))
}
