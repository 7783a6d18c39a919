package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/aristath/etfbacktest/internal/modules/backtest"
	"github.com/aristath/etfbacktest/internal/modules/optimization"
	"github.com/olekukonko/tablewriter"
)

func printBacktest(w io.Writer, r *backtest.Report) error {
	fmt.Fprintf(w, "Backtest %s  %s to %s\n", r.RunID, r.DateRange.Start, r.DateRange.End)
	fmt.Fprintf(w, "Rebalance: %s  cost: %.4f  reinvest dividends: %t\n\n",
		r.Config.RebalanceFrequency, r.Config.TransactionCost, r.Config.ReinvestDividends)

	p, b := r.Metrics.Portfolio, r.Metrics.Benchmark
	rows := []struct {
		name string
		p, b domain.Metric
		pct  bool
	}{
		{"Total return", p.TotalReturn, b.TotalReturn, true},
		{"CAGR", p.CAGR, b.CAGR, true},
		{"Volatility", p.Volatility, b.Volatility, true},
		{"Sharpe", p.Sharpe, b.Sharpe, false},
		{"Sortino", p.Sortino, b.Sortino, false},
		{"Max drawdown", p.MaxDrawdown, b.MaxDrawdown, true},
		{"Calmar", p.Calmar, b.Calmar, false},
		{"VaR 95%", p.VaR95, b.VaR95, true},
		{"Beta", p.Beta, b.Beta, false},
		{"Best year", p.BestYear, b.BestYear, true},
		{"Worst year", p.WorstYear, b.WorstYear, true},
		{"Win rate", p.WinRate, b.WinRate, true},
	}

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Portfolio", "Benchmark")
	table.Append("Final value", fmt.Sprintf("%.2f", r.FinalValues.Portfolio), fmt.Sprintf("%.2f", r.FinalValues.Benchmark))
	for _, row := range rows {
		table.Append(row.name, formatMetric(row.p, row.pct), formatMetric(row.b, row.pct))
	}
	table.Append("TER", formatPercent(r.Config.PortfolioTER), formatPercent(r.Config.BenchmarkTER))
	if err := table.Render(); err != nil {
		return fmt.Errorf("render metrics table: %w", err)
	}

	alloc := tablewriter.NewWriter(w)
	alloc.Header("Ticker", "Target", "Final", "TER")
	for _, a := range r.Allocation {
		alloc.Append(a.Ticker, formatPercent(a.Weight), formatPercent(a.FinalWeight), formatPercent(a.TER))
	}
	if err := alloc.Render(); err != nil {
		return fmt.Errorf("render allocation table: %w", err)
	}

	fmt.Fprintf(w, "Rebalances: %d\n", len(r.Rebalances.Portfolio))
	return nil
}

func printFrontier(w io.Writer, r *optimization.Report) error {
	fmt.Fprintf(w, "Efficient frontier %s  %s to %s\n", r.RunID, r.DateRange.Start, r.DateRange.End)
	fmt.Fprintf(w, "Samples: %d (%s)  seed: %d  risk-free: %.4f\n\n", r.Samples, r.Distribution, r.Seed, r.RiskFreeRate)

	header := []any{"Portfolio", "Return", "Volatility", "Sharpe"}
	for _, t := range r.Tickers {
		header = append(header, t)
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)
	for _, p := range r.Portfolios {
		row := []any{p.Name, formatMetric(p.AnnualReturn, true), formatMetric(p.AnnualVolatility, true), formatMetric(p.SharpeRatio, false)}
		for _, t := range r.Tickers {
			row = append(row, formatPercent(p.Weights[t]))
		}
		table.Append(row...)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render frontier table: %w", err)
	}

	for _, p := range r.Portfolios {
		fmt.Fprintf(w, "%s: %s\n", p.Name, describeWeights(p.DisplayWeights))
	}
	return nil
}

// describeWeights lists weights largest first.
func describeWeights(weights map[string]float64) string {
	tickers := make([]string, 0, len(weights))
	for t := range weights {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool {
		if weights[tickers[i]] != weights[tickers[j]] {
			return weights[tickers[i]] > weights[tickers[j]]
		}
		return tickers[i] < tickers[j]
	})

	out := ""
	for i, t := range tickers {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s %s", t, formatPercent(weights[t]))
	}
	return out
}

func formatMetric(m domain.Metric, pct bool) string {
	if !m.Defined() {
		return "n/a"
	}
	if pct {
		return formatPercent(m.Float())
	}
	return fmt.Sprintf("%.2f", m.Float())
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
