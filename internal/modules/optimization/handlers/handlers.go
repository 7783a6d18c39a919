// Package handlers provides HTTP handlers for efficient frontier analysis.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/etfbacktest/internal/modules/backtest"
	"github.com/aristath/etfbacktest/internal/modules/optimization"
	"github.com/aristath/etfbacktest/internal/utils"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Runner executes frontier requests.
type Runner interface {
	Run(ctx context.Context, req optimization.Request) (*optimization.Report, error)
}

// Options are the request-layer defaults and bounds.
type Options struct {
	RiskFreeRate float64
	MaxSamples   int
	TERs         backtest.TERLookup
}

// Handler handles efficient frontier HTTP requests
type Handler struct {
	runner Runner
	opts   Options
	now    func() time.Time
	log    zerolog.Logger
}

// NewHandler creates a new frontier handler
func NewHandler(runner Runner, opts Options, log zerolog.Logger) *Handler {
	return &Handler{
		runner: runner,
		opts:   opts,
		now:    time.Now,
		log:    log.With().Str("handler", "optimization").Logger(),
	}
}

// HandleEfficientFrontier handles POST /api/efficient-frontier
func (h *Handler) HandleEfficientFrontier(w http.ResponseWriter, r *http.Request) {
	var payload optimization.Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		h.log.Debug().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := payload.Request(optimization.PayloadDefaults{
		Now:          h.now(),
		RiskFreeRate: h.opts.RiskFreeRate,
		MaxSamples:   h.opts.MaxSamples,
		TERs:         h.opts.TERs,
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.runner.Run(r.Context(), req)
	if err != nil {
		status := utils.StatusForError(err)
		event := h.log.Warn()
		if status >= http.StatusInternalServerError {
			event = h.log.Error()
		}
		event.Err(err).Int("status", status).Int("samples", req.Samples).Msg("Efficient frontier failed")
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report)
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
