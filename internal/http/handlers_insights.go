package http

import (
	"log/slog"
	"net/http"
)

// handleInsights recomputes the user's spending insights, serving a recent
// result from memory when one exists. Transaction and budget writes evict
// the entry, so a cache hit is never stale relative to this instance.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	if cached, ok := s.insightsCache.Get(uid); ok {
		writeJSON(w, http.StatusOK, toInsightsResponse(cached))
		return
	}

	computed, err := s.tx.Insights(r.Context(), uid)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute insights", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute insights")
		return
	}

	s.insightsCache.Set(uid, computed)
	writeJSON(w, http.StatusOK, toInsightsResponse(computed))
}
