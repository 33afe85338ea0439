package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobmcallan/stockpit/internal/app"
	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to stockpit.toml (defaults to $STOCKPIT_CONFIG, then the binary directory)")
	port := flag.Int("port", 0, "override the configured HTTP port")
	flag.Parse()

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	if *port > 0 {
		a.Config.Server.Port = *port
	}

	common.PrintBanner(a.Config, a.Logger)

	// Start background services
	a.StartProgressHub()
	a.StartRefreshScheduler()

	srv := server.NewServer(a)

	// The /api/shutdown endpoint signals through this channel in development.
	shutdownChan := make(chan struct{}, 1)
	srv.SetShutdownChannel(shutdownChan)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	a.Logger.Info().
		Str("url", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)).
		Str("mcp", fmt.Sprintf("http://localhost:%d/mcp", a.Config.Server.Port)).
		Str("progress", fmt.Sprintf("ws://localhost:%d/ws/progress", a.Config.Server.Port)).
		Msg("Server ready")

	// Wait for interrupt signal or shutdown request
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		a.Logger.Info().Msg("Shutdown signal received")
	case <-shutdownChan:
		a.Logger.Info().Msg("Shutdown requested via API")
	}

	common.PrintShutdownBanner(a.Logger)

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	a.Close()
	a.Logger.Info().Msg("Server stopped")
}
