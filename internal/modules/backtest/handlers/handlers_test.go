package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/etfbacktest/internal/domain"
	"github.com/aristath/etfbacktest/internal/modules/backtest"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	report *backtest.Report
	err    error
	calls  int
	last   backtest.Request
}

func (f *fakeRunner) Run(ctx context.Context, req backtest.Request) (*backtest.Report, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type terTable map[string]float64

func (t terTable) TER(ticker string) (float64, bool) {
	v, ok := t[ticker]
	return v, ok
}

func cannedReport() *backtest.Report {
	return &backtest.Report{
		RunID:       "8a1f6c1e-run",
		DateRange:   backtest.DateRange{Start: "2023-01-03", End: "2023-01-05"},
		FinalValues: backtest.Pair[float64]{Portfolio: 10400, Benchmark: 10300},
		Series: backtest.Series{
			Dates:             []string{"2023-01-03", "2023-01-04", "2023-01-05"},
			Portfolio:         []float64{10000, 10050, 10400},
			Benchmark:         []float64{10000, 9900, 10300},
			PortfolioDrawdown: []float64{0, 0, 0},
			BenchmarkDrawdown: []float64{0, -0.01, 0},
		},
		Plots: map[string]string{},
	}
}

func setupRouter(runner Runner) *chi.Mux {
	handler := NewHandler(runner, terTable{"VTI": 0.03}, 0.02, zerolog.New(nil).Level(zerolog.Disabled))
	handler.now = func() time.Time { return time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC) }

	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validBody() string {
	body, _ := json.Marshal(map[string]interface{}{
		"etfs":      []map[string]interface{}{{"name": "VTI", "weight": 60}, {"name": "BND", "weight": 40, "ter": 0.05}},
		"benchmark": []map[string]interface{}{{"name": "SPY", "weight": 100}},
		"config": map[string]interface{}{
			"start_date":          "2023-01-01",
			"end_date":            "2023-12-31",
			"rebalance_frequency": "yearly",
		},
	})
	return string(body)
}

func TestHandleRun(t *testing.T) {
	runner := &fakeRunner{report: cannedReport()}
	router := setupRouter(runner)

	w := post(router, "/api/backtest", validBody())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "8a1f6c1e-run", resp["run_id"])
	assert.Contains(t, resp, "metrics")
	assert.Contains(t, resp, "series")

	require.Equal(t, 1, runner.calls)
	cfg := runner.last.Config
	assert.Equal(t, domain.RebalanceYearly, cfg.Frequency)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), cfg.End)
	assert.Equal(t, 0.02, cfg.RiskFreeRate)
	assets := runner.last.Portfolio.Assets()
	require.Len(t, assets, 2)
	assert.InDelta(t, 0.0003, assets[0].TER, 1e-12)
	assert.InDelta(t, 0.0005, assets[1].TER, 1e-12)
}

func TestHandleRun_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"etfs": [`},
		{"wrong type", `{"etfs": "VTI"}`},
		{"no etfs", `{"benchmark": [{"name": "SPY", "weight": 1}]}`},
		{"zero weights", `{"etfs": [{"name": "VTI", "weight": 0}], "benchmark": [{"name": "SPY", "weight": 1}]}`},
		{"unknown frequency", `{"etfs": [{"name": "VTI", "weight": 1}], "benchmark": [{"name": "SPY", "weight": 1}], "config": {"rebalance_frequency": "daily"}}`},
		{"bad date", `{"etfs": [{"name": "VTI", "weight": 1}], "benchmark": [{"name": "SPY", "weight": 1}], "config": {"start_date": "2020/01/01"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{report: cannedReport()}
			w := post(setupRouter(runner), "/api/backtest", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp["error"])
			assert.Zero(t, runner.calls)
		})
	}
}

func TestHandleRun_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"insufficient data", &domain.InsufficientDataError{Ticker: "XYZ", Reason: "no prices in window"}, http.StatusUnprocessableEntity},
		{"price source", fmt.Errorf("failed to load price data: %w", domain.ErrPriceSource), http.StatusBadGateway},
		{"invalid config", &domain.InvalidConfigError{Field: "end_date", Reason: "before start"}, http.StatusBadRequest},
		{"internal", fmt.Errorf("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(setupRouter(&fakeRunner{err: tt.err}), "/api/backtest", validBody())

			assert.Equal(t, tt.expected, w.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.err.Error(), resp["error"])
		})
	}
}

func TestHandleExport(t *testing.T) {
	w := post(setupRouter(&fakeRunner{report: cannedReport()}), "/api/backtest/export", validBody())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="backtest-8a1f6c1e-run.csv"`, w.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,portfolio,benchmark,portfolio_drawdown,benchmark_drawdown", lines[0])
	assert.Equal(t, "2023-01-05,10400.000000,10300.000000,0.000000,0.000000", lines[3])
}

func TestHandleExport_Error(t *testing.T) {
	w := post(setupRouter(&fakeRunner{err: &domain.InsufficientDataError{Reason: "1 date"}}), "/api/backtest/export", validBody())

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestHandleRun_BodyTooLarge(t *testing.T) {
	runner := &fakeRunner{report: cannedReport()}
	body := `{"etfs": [{"name": "` + string(bytes.Repeat([]byte("A"), maxBodyBytes)) + `"}]}`

	w := post(setupRouter(runner), "/api/backtest", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, runner.calls)
}

func TestRegisterRoutes(t *testing.T) {
	handler := NewHandler(&fakeRunner{}, nil, 0.02, zerolog.New(nil).Level(zerolog.Disabled))
	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	})
}
