// Package handlers provides HTTP handlers for backtest runs.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/etfbacktest/internal/modules/backtest"
	"github.com/aristath/etfbacktest/internal/utils"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Runner executes backtest requests.
type Runner interface {
	Run(ctx context.Context, req backtest.Request) (*backtest.Report, error)
}

// Handler handles backtest HTTP requests
type Handler struct {
	runner       Runner
	ters         backtest.TERLookup
	riskFreeRate float64
	now          func() time.Time
	log          zerolog.Logger
}

// NewHandler creates a new backtest handler. ters supplies default TERs for assets
// sent without one and may be nil.
func NewHandler(runner Runner, ters backtest.TERLookup, riskFreeRate float64, log zerolog.Logger) *Handler {
	return &Handler{
		runner:       runner,
		ters:         ters,
		riskFreeRate: riskFreeRate,
		now:          time.Now,
		log:          log.With().Str("handler", "backtest").Logger(),
	}
}

// HandleRun handles POST /api/backtest
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	report, ok := h.run(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// HandleExport handles POST /api/backtest/export
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.run(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="backtest-%s.csv"`, report.RunID))
	w.WriteHeader(http.StatusOK)
	if err := backtest.WriteCSV(w, report); err != nil {
		h.log.Error().Err(err).Str("run_id", report.RunID).Msg("Failed to write CSV export")
	}
}

// run decodes the payload and executes it. On failure the error response is
// already written.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) (*backtest.Report, bool) {
	var payload backtest.Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		h.log.Debug().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}

	req, err := payload.Request(backtest.PayloadDefaults{
		Now:          h.now(),
		RiskFreeRate: h.riskFreeRate,
		TERs:         h.ters,
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	report, err := h.runner.Run(r.Context(), req)
	if err != nil {
		status := utils.StatusForError(err)
		event := h.log.Warn()
		if status >= http.StatusInternalServerError {
			event = h.log.Error()
		}
		event.Err(err).Int("status", status).Msg("Backtest failed")
		h.writeError(w, status, err.Error())
		return nil, false
	}
	return report, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
