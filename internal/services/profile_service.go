package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"moneytalk/internal/core"
	"moneytalk/internal/storage"
)

// ProfileStore is the storage surface for per-user settings.
type ProfileStore interface {
	GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error)
	UpsertUserProfile(ctx context.Context, p core.UserProfile) error
}

// ProfileService manages per-user settings, currently the AI API key
// override picked up by the voice and recommendation flows.
type ProfileService struct {
	store ProfileStore
}

func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

// Profile returns the user's settings, zero-valued when none are stored.
func (s *ProfileService) Profile(ctx context.Context, userID string) (core.UserProfile, error) {
	p, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.UserProfile{UserID: userID}, nil
		}
		return core.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SaveAPIKey stores the user's AI key override; an empty key clears it.
func (s *ProfileService) SaveAPIKey(ctx context.Context, userID, apiKey string) error {
	p := core.UserProfile{UserID: userID, APIKey: strings.TrimSpace(apiKey)}
	if err := s.store.UpsertUserProfile(ctx, p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
