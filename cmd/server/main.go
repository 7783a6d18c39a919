// Package main is the entry point of the ETF backtest and efficient frontier API.
//
// Startup sequence:
//  1. Load configuration from the environment (.env supported)
//  2. Build the logger
//  3. Wire dependencies (cache database, price source, services, jobs)
//  4. Start the maintenance scheduler and the HTTP server
//  5. Wait for SIGINT/SIGTERM and shut down gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/etfbacktest/internal/config"
	"github.com/aristath/etfbacktest/internal/di"
	backtesthandlers "github.com/aristath/etfbacktest/internal/modules/backtest/handlers"
	cataloghandlers "github.com/aristath/etfbacktest/internal/modules/catalog/handlers"
	optimizationhandlers "github.com/aristath/etfbacktest/internal/modules/optimization/handlers"
	"github.com/aristath/etfbacktest/internal/server"
	"github.com/aristath/etfbacktest/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting ETF backtest service")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:            log,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
		CacheDB:        container.CacheDB,
		Scheduler:      container.Scheduler,
		Jobs:           jobs.All(),
		Modules: []server.RouteRegistrar{
			cataloghandlers.NewHandler(container.Catalog, log),
			backtesthandlers.NewHandler(container.BacktestService, container.Catalog, cfg.DefaultRiskFreeRate, log),
			optimizationhandlers.NewHandler(container.FrontierService, optimizationhandlers.Options{
				RiskFreeRate: cfg.DefaultRiskFreeRate,
				MaxSamples:   cfg.FrontierMaxSamples,
				TERs:         container.Catalog,
			}, log),
		},
	})

	container.Scheduler.Start()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// In-flight frontier requests may run up to the request timeout.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	container.Scheduler.Stop()

	log.Info().Msg("Server stopped")
}
