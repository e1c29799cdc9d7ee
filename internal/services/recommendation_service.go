package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneytalk/internal/ai"
	"moneytalk/internal/cache"
	"moneytalk/internal/core"
	applog "moneytalk/internal/log"
	"moneytalk/internal/storage"
)

// RecommendationStore is the storage surface the recommendation service
// needs: the server-side mirror plus the inputs to the prompt.
type RecommendationStore interface {
	GetRecommendations(ctx context.Context, userID string) (core.CachedRecommendations, error)
	SaveRecommendations(ctx context.Context, userID string, c core.CachedRecommendations) error
	DeleteRecommendations(ctx context.Context, userID string) error
	ComputeMonthlySummary(ctx context.Context, userID string, year, month int) (core.MonthlySummary, error)
	ListBudgetLimits(ctx context.Context, userID string) ([]core.BudgetLimit, error)
	GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error)
}

// Recommender is the AI surface generating the recommendation list.
type Recommender interface {
	GenerateRecommendations(ctx context.Context, transactionSummary, economicContext, userKey string) ([]core.Recommendation, error)
}

// RecommendationsPublisher hands freshly generated slots to the worker for
// mirroring.
type RecommendationsPublisher interface {
	PublishRecommendations(ctx context.Context, userID string, data []core.Recommendation, generatedAt time.Time) error
}

// RecommendationService owns the per-user recommendation slot: at most one
// valid cached result per user, invalidated only by the fixed TTL or an
// explicit manual refresh. Expiry never triggers a silent regeneration.
type RecommendationService struct {
	store  RecommendationStore
	ai     Recommender
	events RecommendationsPublisher
	slots  *cache.LRUCache[core.CachedRecommendations]
	now    func() time.Time
}

func NewRecommendationService(store RecommendationStore, client Recommender, events RecommendationsPublisher) *RecommendationService {
	return &RecommendationService{
		store:  store,
		ai:     client,
		events: events,
		slots:  cache.NewLRUCache[core.CachedRecommendations](1000, core.RecommendationTTL),
		now:    time.Now,
	}
}

// Get returns the user's cached recommendations if still valid. An expired
// slot is cleared and (zero value, false) returned; the caller must ask the
// user for an explicit regeneration.
func (s *RecommendationService) Get(ctx context.Context, userID string) (core.CachedRecommendations, bool, error) {
	now := s.now()

	if slot, ok := s.slots.Get(userID); ok {
		if slot.Valid(now) {
			return slot, true, nil
		}
		s.clear(ctx, userID)
		return core.CachedRecommendations{}, false, nil
	}

	slot, err := s.store.GetRecommendations(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.CachedRecommendations{}, false, nil
		}
		return core.CachedRecommendations{}, false, fmt.Errorf("load recommendations mirror: %w", err)
	}

	if !slot.Valid(now) {
		s.clear(ctx, userID)
		return core.CachedRecommendations{}, false, nil
	}

	s.slots.Set(userID, slot)
	return slot, true, nil
}

// Generate builds the prompt from the user's data, calls the AI, and
// overwrites the slot on success. On failure the previous slot (if any)
// stays untouched so stale advice beats no advice.
func (s *RecommendationService) Generate(ctx context.Context, userID string) (core.CachedRecommendations, error) {
	now := s.now()
	year, month := now.UTC().Year(), int(now.UTC().Month())
	prevYear, prevMonth := previousMonth(year, month)

	current, err := s.store.ComputeMonthlySummary(ctx, userID, year, month)
	if err != nil {
		return core.CachedRecommendations{}, fmt.Errorf("summarize current month: %w", err)
	}
	previous, err := s.store.ComputeMonthlySummary(ctx, userID, prevYear, prevMonth)
	if err != nil {
		return core.CachedRecommendations{}, fmt.Errorf("summarize previous month: %w", err)
	}
	limits, err := s.store.ListBudgetLimits(ctx, userID)
	if err != nil {
		return core.CachedRecommendations{}, fmt.Errorf("list budget limits: %w", err)
	}

	data, err := s.ai.GenerateRecommendations(ctx,
		ai.BuildTransactionSummary(current, previous, limits),
		ai.EconomicContext(),
		s.userKey(ctx, userID))
	if err != nil {
		return core.CachedRecommendations{}, fmt.Errorf("generate recommendations: %w", err)
	}

	slot := core.CachedRecommendations{Data: data, Timestamp: now}
	s.slots.Set(userID, slot)
	s.mirror(ctx, userID, slot)

	slog.InfoContext(ctx, "Recommendations generated",
		applog.FieldOperation, applog.OpGenerate, "user_id", userID, "count", len(data))
	return slot, nil
}

// ManualRefresh unconditionally clears the slot and regenerates.
func (s *RecommendationService) ManualRefresh(ctx context.Context, userID string) (core.CachedRecommendations, error) {
	slog.InfoContext(ctx, "Manual refresh requested",
		applog.FieldOperation, applog.OpRefresh, "user_id", userID)
	s.clear(ctx, userID)
	return s.Generate(ctx, userID)
}

func (s *RecommendationService) clear(ctx context.Context, userID string) {
	s.slots.Delete(userID)
	if err := s.store.DeleteRecommendations(ctx, userID); err != nil {
		slog.WarnContext(ctx, "Failed to clear recommendations mirror", "error", err, "user_id", userID)
	}
}

// mirror hands the slot to the worker when the pipeline is up, otherwise
// writes it directly. Mirror failures are logged, not surfaced: the
// in-memory slot already serves reads.
func (s *RecommendationService) mirror(ctx context.Context, userID string, slot core.CachedRecommendations) {
	if s.events != nil {
		err := s.events.PublishRecommendations(ctx, userID, slot.Data, slot.Timestamp)
		if err == nil {
			return
		}
		slog.ErrorContext(ctx, "Failed to publish recommendations event, mirroring inline",
			"error", err, "user_id", userID)
	}
	if err := s.store.SaveRecommendations(ctx, userID, slot); err != nil {
		slog.ErrorContext(ctx, "Failed to mirror recommendations", "error", err, "user_id", userID)
	}
}

func (s *RecommendationService) userKey(ctx context.Context, userID string) string {
	profile, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Failed to load user profile", "error", err, "user_id", userID)
		}
		return ""
	}
	return profile.APIKey
}

func previousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}
