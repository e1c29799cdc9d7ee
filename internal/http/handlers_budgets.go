package http

import (
	"errors"
	"log/slog"
	"net/http"

	"moneytalk/internal/services"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	limits, err := s.tx.ListBudgetLimits(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list budget limits", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load budgets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"limits": toBudgetList(limits)})
}

// handleSaveBudgets replaces the user's budget limits wholesale.
func (s *Server) handleSaveBudgets(w http.ResponseWriter, r *http.Request) {
	var req budgetsRequest
	if err := decodeJSON(r, &req, maxJSONBody); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limits, err := req.toCore()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	uid := userID(r)
	if err := s.tx.SaveBudgetLimits(r.Context(), uid, limits); err != nil {
		if isValidationError(err) || errors.Is(err, services.ErrDuplicateCategory) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to save budget limits", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save budgets")
		return
	}

	s.insightsCache.Delete(uid)

	saved, err := s.tx.ListBudgetLimits(r.Context(), uid)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to reload budget limits", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load budgets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"limits": toBudgetList(saved)})
}
