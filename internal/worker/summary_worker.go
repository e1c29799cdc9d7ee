// Package worker maintains the monthly summary and recommendation read
// models from the transaction event stream.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"moneytalk/internal/amqp"
	"moneytalk/internal/core"
	applog "moneytalk/internal/log"
)

// Store is the storage surface the worker writes through.
type Store interface {
	ComputeMonthlySummary(ctx context.Context, userID string, year, month int) (core.MonthlySummary, error)
	UpsertMonthlySummary(ctx context.Context, s core.MonthlySummary) error
	SaveRecommendations(ctx context.Context, userID string, c core.CachedRecommendations) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// SummaryWorker consumes transaction mutation events and keeps the
// monthly_summaries table current. It also mirrors freshly generated
// recommendation slots handed over by the API process.
type SummaryWorker struct {
	store     Store
	batchSize int
	now       func() time.Time
}

// NewSummaryWorker builds a worker; batchSize bounds how many users are
// rebuilt concurrently during a sweep.
func NewSummaryWorker(store Store, batchSize int) *SummaryWorker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &SummaryWorker{store: store, batchSize: batchSize, now: time.Now}
}

// HandleEnvelope dispatches one consumed message. Unknown kinds are
// dropped with a warning; returning an error would requeue them forever.
func (w *SummaryWorker) HandleEnvelope(ctx context.Context, env *amqp.Envelope) error {
	switch env.Kind {
	case amqp.KindTransactionCreated, amqp.KindTransactionUpdated, amqp.KindTransactionDeleted:
		ev, err := env.DecodeTransactionEvent()
		if err != nil {
			return fmt.Errorf("decode transaction event: %w", err)
		}
		return w.HandleTransactionEvent(ctx, ev)
	case amqp.KindRecommendations:
		ev, err := env.DecodeRecommendationsEvent()
		if err != nil {
			return fmt.Errorf("decode recommendations event: %w", err)
		}
		return w.HandleRecommendationsEvent(ctx, ev)
	default:
		slog.WarnContext(ctx, "Dropping message of unknown kind", "kind", env.Kind)
		return nil
	}
}

// HandleTransactionEvent rebuilds the affected user month from scratch.
// Recomputing the whole month keeps the handler idempotent, so redelivered
// messages are harmless.
func (w *SummaryWorker) HandleTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Rebuilding monthly summary",
		applog.FieldUserID, ev.UserID, applog.FieldYear, ev.Year, applog.FieldMonth, ev.Month)

	summary, err := w.store.ComputeMonthlySummary(ctx, ev.UserID, ev.Year, ev.Month)
	if err != nil {
		return fmt.Errorf("compute monthly summary: %w", err)
	}
	if err := w.store.UpsertMonthlySummary(ctx, summary); err != nil {
		return fmt.Errorf("save monthly summary: %w", err)
	}
	return nil
}

// HandleRecommendationsEvent mirrors a generated slot into storage so other
// instances can serve it after a restart.
func (w *SummaryWorker) HandleRecommendationsEvent(ctx context.Context, ev *amqp.RecommendationsEvent) error {
	slog.InfoContext(ctx, "Mirroring recommendations",
		applog.FieldUserID, ev.UserID, "count", len(ev.Data))

	slot := core.CachedRecommendations{Data: ev.Data, Timestamp: ev.GeneratedAt}
	if err := w.store.SaveRecommendations(ctx, ev.UserID, slot); err != nil {
		return fmt.Errorf("save recommendations: %w", err)
	}
	return nil
}

// RebuildCurrentMonth recomputes the running month for every known user.
// This is the backup path for lost or missed events.
func (w *SummaryWorker) RebuildCurrentMonth(ctx context.Context) error {
	users, err := w.store.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		return nil
	}

	now := w.now().UTC()
	year, month := now.Year(), int(now.Month())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.batchSize)

	for _, userID := range users {
		g.Go(func() error {
			ev := amqp.TransactionEvent{UserID: userID, Year: year, Month: month}
			if err := w.HandleTransactionEvent(gctx, &ev); err != nil {
				// Per-user failures are logged, not fatal to the sweep.
				slog.ErrorContext(gctx, "Failed to rebuild summary",
					applog.FieldError, err, applog.FieldUserID, userID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Current month rebuild completed", "users", len(users))
	return nil
}

// RunPeriodicRebuild rebuilds the current month on the given interval
// until the context is canceled.
func (w *SummaryWorker) RunPeriodicRebuild(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.RebuildCurrentMonth(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic rebuild failed", applog.FieldError, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
