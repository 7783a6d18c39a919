// Command backtest runs a portfolio backtest or an efficient frontier analysis from a
// YAML request file and prints the results as tables.
//
//	backtest -request portfolio.yaml
//	backtest -request universe.yaml -mode frontier -seed 42
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/etfbacktest/internal/config"
	"github.com/aristath/etfbacktest/internal/di"
	"github.com/aristath/etfbacktest/internal/modules/backtest"
	"github.com/aristath/etfbacktest/internal/modules/optimization"
	"github.com/aristath/etfbacktest/pkg/logger"
	"github.com/rs/zerolog"
)

const (
	modeBacktest = "backtest"
	modeFrontier = "frontier"
)

func main() {
	requestPath := flag.String("request", "", "path to a YAML request file (required)")
	mode := flag.String("mode", modeBacktest, "backtest|frontier")
	seed := flag.Uint64("seed", 0, "frontier RNG seed (overrides the request file)")
	csvPath := flag.String("csv", "", "backtest mode: also write the NAV series to this CSV file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	flag.Parse()

	seedSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})

	if *requestPath == "" {
		fmt.Fprintln(os.Stderr, "missing -request")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, options{
		requestPath: *requestPath,
		mode:        *mode,
		seed:        seed,
		seedSet:     seedSet,
		csvPath:     *csvPath,
	}); err != nil {
		log.Error().Err(err).Msg("Run failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type options struct {
	requestPath string
	mode        string
	seed        *uint64
	seedSet     bool
	csvPath     string
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts options) error {
	data, err := os.ReadFile(opts.requestPath)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	now := time.Now()

	switch opts.mode {
	case modeBacktest:
		payload, err := decodeBacktest(data)
		if err != nil {
			return err
		}
		req, err := payload.Request(backtest.PayloadDefaults{
			Now:          now,
			RiskFreeRate: cfg.DefaultRiskFreeRate,
			TERs:         container.Catalog,
		})
		if err != nil {
			return err
		}

		// no plotter: the CLI prints tables only
		report, err := backtest.NewService(container.Prices, nil, log).Run(ctx, req)
		if err != nil {
			return err
		}
		if err := printBacktest(os.Stdout, report); err != nil {
			return err
		}
		if opts.csvPath != "" {
			return writeCSVFile(opts.csvPath, report)
		}
		return nil

	case modeFrontier:
		payload, err := decodeFrontier(data)
		if err != nil {
			return err
		}
		if opts.seedSet {
			payload.Config.Seed = opts.seed
		}
		req, err := payload.Request(optimization.PayloadDefaults{
			Now:          now,
			RiskFreeRate: cfg.DefaultRiskFreeRate,
			MaxSamples:   cfg.FrontierMaxSamples,
			TERs:         container.Catalog,
		})
		if err != nil {
			return err
		}

		report, err := optimization.NewService(container.Prices, container.Optimizer, nil, log).Run(ctx, req)
		if err != nil {
			return err
		}
		return printFrontier(os.Stdout, report)

	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", opts.mode, modeBacktest, modeFrontier)
	}
}

func writeCSVFile(path string, report *backtest.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := backtest.WriteCSV(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
