package backtest

import (
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/aristath/etfbacktest/internal/domain"
)

// CSVHeader is the column layout of WriteCSV.
var CSVHeader = []string{"date", "portfolio", "benchmark", "portfolio_drawdown", "benchmark_drawdown"}

// WriteCSV flattens the report's NAV paths into one row per aligned date.
func WriteCSV(w io.Writer, r *Report) error {
	if len(r.Series.Dates) != len(r.Series.Portfolio) || len(r.Series.Dates) != len(r.Series.Benchmark) {
		return fmt.Errorf("write csv: series lengths differ: %w", domain.ErrInsufficientData)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i, date := range r.Series.Dates {
		row := []string{
			date,
			formatFloat(r.Series.Portfolio[i]),
			formatFloat(r.Series.Benchmark[i]),
			formatFloat(r.Series.PortfolioDrawdown[i]),
			formatFloat(r.Series.BenchmarkDrawdown[i]),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func encodePNG(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}
