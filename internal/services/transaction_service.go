package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneytalk/internal/amqp"
	"moneytalk/internal/core"
	"moneytalk/internal/insights"
)

// ErrDuplicateCategory rejects budget payloads naming a category twice.
var ErrDuplicateCategory = errors.New("duplicate category")

// TransactionStore is the storage surface the transaction service needs.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID string, id int64) error
	ReplaceBudgetLimits(ctx context.Context, userID string, limits []core.BudgetLimit) error
	ListBudgetLimits(ctx context.Context, userID string) ([]core.BudgetLimit, error)
	ComputeMonthlySummary(ctx context.Context, userID string, year, month int) (core.MonthlySummary, error)
	UpsertMonthlySummary(ctx context.Context, s core.MonthlySummary) error
}

// EventPublisher publishes transaction mutation events for the worker.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, kind string, ev amqp.TransactionEvent) error
}

// TransactionService orchestrates transaction CRUD across storage and the
// event pipeline. When no publisher is configured the monthly summary is
// rebuilt synchronously instead.
type TransactionService struct {
	store  TransactionStore
	events EventPublisher
	now    func() time.Time
}

func NewTransactionService(store TransactionStore, events EventPublisher) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.afterMutation(ctx, amqp.KindTransactionCreated, created.UserID, created.ID, created.CreatedAt)
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	s.afterMutation(ctx, amqp.KindTransactionUpdated, updated.UserID, updated.ID, updated.CreatedAt)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID string, id int64) error {
	// Read first so the event carries the affected month
	existing, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}

	s.afterMutation(ctx, amqp.KindTransactionDeleted, userID, id, existing.CreatedAt)
	return nil
}

// afterMutation publishes the event, or rebuilds the summary inline when
// the pipeline is not configured. Neither failure mode fails the request;
// the transaction row is already durable.
func (s *TransactionService) afterMutation(ctx context.Context, kind, userID string, id int64, at time.Time) {
	if at.IsZero() {
		at = s.now()
	}
	year, month := at.UTC().Year(), int(at.UTC().Month())

	if s.events != nil {
		err := s.events.PublishTransactionEvent(ctx, kind, amqp.TransactionEvent{
			UserID:        userID,
			TransactionID: id,
			Year:          year,
			Month:         month,
		})
		if err == nil {
			return
		}
		slog.ErrorContext(ctx, "Failed to publish transaction event, rebuilding summary inline",
			"error", err, "kind", kind, "user_id", userID)
	}

	summary, err := s.store.ComputeMonthlySummary(ctx, userID, year, month)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to compute monthly summary", "error", err, "user_id", userID)
		return
	}
	if err := s.store.UpsertMonthlySummary(ctx, summary); err != nil {
		slog.ErrorContext(ctx, "Failed to store monthly summary", "error", err, "user_id", userID)
	}
}

// SaveBudgetLimits replaces the user's budget limits wholesale.
func (s *TransactionService) SaveBudgetLimits(ctx context.Context, userID string, limits []core.BudgetLimit) error {
	seen := make(map[string]struct{}, len(limits))
	for i := range limits {
		limits[i].UserID = userID
		if err := limits[i].Validate(); err != nil {
			return fmt.Errorf("budget limit %q: %w", limits[i].Category, err)
		}
		if _, dup := seen[limits[i].Category]; dup {
			return fmt.Errorf("budget limit %q: %w", limits[i].Category, ErrDuplicateCategory)
		}
		seen[limits[i].Category] = struct{}{}
	}
	return s.store.ReplaceBudgetLimits(ctx, userID, limits)
}

func (s *TransactionService) ListBudgetLimits(ctx context.Context, userID string) ([]core.BudgetLimit, error) {
	return s.store.ListBudgetLimits(ctx, userID)
}

// Insights recomputes all spending insights for the user from scratch.
func (s *TransactionService) Insights(ctx context.Context, userID string) (insights.Insights, error) {
	transactions, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return insights.Insights{}, fmt.Errorf("list transactions: %w", err)
	}
	limits, err := s.store.ListBudgetLimits(ctx, userID)
	if err != nil {
		return insights.Insights{}, fmt.Errorf("list budget limits: %w", err)
	}
	return insights.Compute(s.now(), transactions, limits), nil
}
