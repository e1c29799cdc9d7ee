package http

import (
	"log/slog"
	"net/http"
	"time"

	"moneytalk/internal/services"
)

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.billing.Subscription(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, time.Now()))
}

// handleBillingWebhook applies a subscription change posted by the payment
// provider. Authentication is a shared secret header, not a user scope.
func (s *Server) handleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.billing.VerifySecret(r.Header.Get("X-Webhook-Secret")) {
		slog.WarnContext(r.Context(), "Billing webhook with bad secret",
			"client_ip", extractClientIP(r))
		writeError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var ev services.WebhookEvent
	if err := decodeJSON(r, &ev, maxJSONBody); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.billing.ApplyWebhook(r.Context(), ev); err != nil {
		slog.ErrorContext(r.Context(), "Failed to apply billing webhook", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "invalid webhook event")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
