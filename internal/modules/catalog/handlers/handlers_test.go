package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/etfbacktest/internal/modules/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler(t *testing.T) *Handler {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return NewHandler(c, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestHandleGetTickers(t *testing.T) {
	handler := setupHandler(t)
	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)

	req := httptest.NewRequest("GET", "/api/tickers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp TickersResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Len(t, resp.Categories, 8)
	assert.Equal(t, []string{"BND", "AGG", "VBTLX", "TLT"}, resp.Categories["Bonds"])
	require.Len(t, resp.CategoryOrder, 8)
	assert.Equal(t, "US Total Market", resp.CategoryOrder[0])
	assert.Contains(t, resp.AllTickers, "QQQ")
	assert.IsIncreasing(t, resp.AllTickers)
	assert.InDelta(t, 0.20, resp.TERs["QQQ"], 1e-12)
}

func TestRegisterRoutes(t *testing.T) {
	handler := setupHandler(t)
	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	})
}
