package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth reports liveness. A configured cache database that fails its ping
// turns the answer into 503 "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	response := map[string]interface{}{
		"service":   "etfbacktest",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if db := s.systemHandlers.cacheDB; db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.QuickCheck(ctx); err != nil {
			s.log.Warn().Err(err).Str("database", db.Name()).Msg("Cache database health check failed")
			status, code = "degraded", http.StatusServiceUnavailable
			response["cache"] = "unavailable"
		} else {
			response["cache"] = "ok"
		}
	}

	response["status"] = status
	s.writeJSON(w, code, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
