package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"moneytalk/internal/core"
	"moneytalk/internal/storage"
)

// BillingStore is the storage surface for the subscription read model.
type BillingStore interface {
	GetSubscription(ctx context.Context, userID string) (core.Subscription, error)
	UpsertSubscription(ctx context.Context, s core.Subscription) error
}

// WebhookEvent is what the payment provider posts on subscription changes.
type WebhookEvent struct {
	UserID           string `json:"userId"`
	Plan             string `json:"plan"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"currentPeriodEnd,omitempty"` // unix seconds
}

// BillingService reads subscription state and applies provider webhooks.
// The webhook is the only write path; everything else treats the table as
// read-only.
type BillingService struct {
	store  BillingStore
	secret string
}

func NewBillingService(store BillingStore, webhookSecret string) *BillingService {
	return &BillingService{store: store, secret: webhookSecret}
}

// Subscription returns the user's subscription, defaulting to the free
// plan when the provider has never reported one.
func (s *BillingService) Subscription(ctx context.Context, userID string) (core.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.Subscription{UserID: userID, Plan: "free", Status: core.SubStatusCanceled}, nil
		}
		return core.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// VerifySecret compares the webhook shared secret in constant time.
func (s *BillingService) VerifySecret(got string) bool {
	if s.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.secret), []byte(got)) == 1
}

// ApplyWebhook validates and persists one provider event.
func (s *BillingService) ApplyWebhook(ctx context.Context, ev WebhookEvent) error {
	sub := core.Subscription{
		UserID: ev.UserID,
		Plan:   ev.Plan,
		Status: ev.Status,
	}
	if sub.Plan == "" {
		sub.Plan = "free"
	}
	if ev.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(ev.CurrentPeriodEnd, 0).UTC()
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	return s.store.UpsertSubscription(ctx, sub)
}
