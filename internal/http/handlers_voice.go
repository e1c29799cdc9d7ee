package http

import (
	"errors"
	"log/slog"
	"net/http"

	"moneytalk/internal/services"
)

// handleVoiceAnalyze turns a recorded voice note into a transaction draft.
// The response is never persisted here; the client confirms the draft
// through the regular transaction endpoint.
func (s *Server) handleVoiceAnalyze(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := decodeJSON(r, &req, maxVoiceBody); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	analyzed, usedFallback, err := s.voice.Analyze(r.Context(), userID(r), req.Audio, req.Transcript)
	if err != nil {
		if errors.Is(err, services.ErrNoTranscript) {
			writeError(w, http.StatusUnprocessableEntity, "no audio or transcript provided")
			return
		}
		slog.ErrorContext(r.Context(), "Voice analysis failed", "error", err)
		writeError(w, http.StatusBadRequest, "could not analyze voice note")
		return
	}

	writeJSON(w, http.StatusOK, toVoiceResponse(analyzed, usedFallback))
}
