package di

import (
	"fmt"

	"github.com/aristath/etfbacktest/internal/clients/yahoo"
	"github.com/aristath/etfbacktest/internal/clients/yfinance"
	"github.com/aristath/etfbacktest/internal/config"
	"github.com/aristath/etfbacktest/internal/modules/backtest"
	"github.com/aristath/etfbacktest/internal/modules/catalog"
	"github.com/aristath/etfbacktest/internal/modules/charts"
	"github.com/aristath/etfbacktest/internal/modules/optimization"
	"github.com/aristath/etfbacktest/internal/modules/prices"
	"github.com/aristath/etfbacktest/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices builds the price provider, renderers and services on top of
// an initialized container.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	source, err := newPriceSource(cfg, log)
	if err != nil {
		return err
	}
	container.PriceSource = source
	container.Prices = prices.NewProvider(source, container.CacheRepo, cfg.PriceCacheTTL, log)

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("failed to load ticker catalog: %w", err)
	}
	container.Catalog = cat

	container.Charts = charts.NewRenderer(log)
	container.Optimizer = optimization.NewFrontierOptimizer(cfg.FrontierWorkers, log)
	container.BacktestService = backtest.NewService(container.Prices, container.Charts, log)
	container.FrontierService = optimization.NewService(container.Prices, container.Optimizer, container.Charts, log)
	container.Scheduler = scheduler.New(log)

	log.Info().
		Str("price_source", source.Name()).
		Int("frontier_workers", cfg.FrontierWorkers).
		Msg("Services initialized")

	return nil
}

func newPriceSource(cfg *config.Config, log zerolog.Logger) (prices.Source, error) {
	switch cfg.PriceSource {
	case config.PriceSourceChart, "":
		return yahoo.NewClient(cfg.YahooBaseURL, cfg.YahooRatePerSec, log), nil
	case config.PriceSourceYFinance:
		return yfinance.NewClient(log), nil
	default:
		return nil, fmt.Errorf("unknown price source %q", cfg.PriceSource)
	}
}
