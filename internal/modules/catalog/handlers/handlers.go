// Package handlers provides HTTP handlers for the ticker catalog.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/etfbacktest/internal/modules/catalog"
	"github.com/rs/zerolog"
)

// Handler serves the ticker catalog.
type Handler struct {
	catalog *catalog.Catalog
	log     zerolog.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(c *catalog.Catalog, log zerolog.Logger) *Handler {
	return &Handler{
		catalog: c,
		log:     log.With().Str("handler", "catalog").Logger(),
	}
}

// TickersResponse is the body of GET /api/tickers.
type TickersResponse struct {
	Categories    map[string][]string `json:"categories"`
	CategoryOrder []string            `json:"category_order"`
	AllTickers    []string            `json:"all_tickers"`
	TERs          map[string]float64  `json:"ters"`
}

// HandleGetTickers handles GET /api/tickers
func (h *Handler) HandleGetTickers(w http.ResponseWriter, r *http.Request) {
	cats := h.catalog.Categories()

	resp := TickersResponse{
		Categories:    make(map[string][]string, len(cats)),
		CategoryOrder: make([]string, 0, len(cats)),
		AllTickers:    h.catalog.AllTickers(),
		TERs:          h.catalog.TERs(),
	}
	for _, c := range cats {
		resp.Categories[c.Name] = c.Tickers
		resp.CategoryOrder = append(resp.CategoryOrder, c.Name)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
