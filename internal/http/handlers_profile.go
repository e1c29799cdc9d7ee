package http

import (
	"log/slog"
	"net/http"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profile.Profile(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// handleSaveProfile stores the AI API key override; an empty key clears it.
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req, maxJSONBody); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uid := userID(r)
	if err := s.profile.SaveAPIKey(r.Context(), uid, sanitizeInput(req.APIKey)); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	p, err := s.profile.Profile(r.Context(), uid)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to reload profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}
