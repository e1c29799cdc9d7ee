package http

import (
	"log/slog"
	"net/http"
)

// handleGetRecommendations serves the cached slot when it is still fresh.
// An empty or expired slot comes back with cached=false and no data; the
// client has to ask for an explicit generation.
func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	slot, ok, err := s.recs.Get(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load recommendations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load recommendations")
		return
	}
	writeJSON(w, http.StatusOK, toRecommendationsResponse(slot, ok))
}

func (s *Server) handleGenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	slot, err := s.recs.Generate(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to generate recommendations", "error", err)
		writeError(w, http.StatusBadGateway, "recommendation generation failed")
		return
	}
	writeJSON(w, http.StatusOK, toRecommendationsResponse(slot, true))
}

// handleRefreshRecommendations discards the current slot before regenerating.
func (s *Server) handleRefreshRecommendations(w http.ResponseWriter, r *http.Request) {
	slot, err := s.recs.ManualRefresh(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to refresh recommendations", "error", err)
		writeError(w, http.StatusBadGateway, "recommendation refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, toRecommendationsResponse(slot, true))
}
