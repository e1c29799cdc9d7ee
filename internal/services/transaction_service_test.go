package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"moneytalk/internal/amqp"
	"moneytalk/internal/core"
	"moneytalk/internal/storage"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
}

func TestTransactionServiceCreate(t *testing.T) {
	store := newFakeStore()
	events := &fakePublisher{}
	svc := NewTransactionService(store, events)
	svc.now = fixedNow

	created, err := svc.Create(context.Background(), core.Transaction{
		UserID:      "u1",
		Type:        core.Expense,
		Amount:      core.Money{Cents: 2500},
		Category:    "Groceries",
		Description: "weekly shop",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Error("Create() did not assign an ID")
	}
	if len(events.txEvents) != 1 {
		t.Fatalf("published %d events, want 1", len(events.txEvents))
	}
	ev := events.txEvents[0]
	if events.txKinds[0] != amqp.KindTransactionCreated {
		t.Errorf("event kind = %q, want %q", events.txKinds[0], amqp.KindTransactionCreated)
	}
	if ev.UserID != "u1" || ev.TransactionID != created.ID {
		t.Errorf("event = %+v, want user u1 id %d", ev, created.ID)
	}
	if store.summaryUpserts != 0 {
		t.Error("summary rebuilt inline despite working publisher")
	}
}

func TestTransactionServiceCreateInvalid(t *testing.T) {
	svc := NewTransactionService(newFakeStore(), nil)

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"zero amount", core.Transaction{UserID: "u1", Type: core.Expense, Amount: core.Money{}, Category: "Groceries", Description: "x"}, core.ErrInvalidAmount},
		{"negative amount", core.Transaction{UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: -100}, Category: "Groceries", Description: "x"}, core.ErrInvalidAmount},
		{"bad type", core.Transaction{UserID: "u1", Type: "transfer", Amount: core.Money{Cents: 100}, Category: "Groceries", Description: "x"}, core.ErrInvalidType},
		{"missing user", core.Transaction{Type: core.Expense, Amount: core.Money{Cents: 100}, Category: "Groceries", Description: "x"}, core.ErrEmptyUserID},
		{"missing category", core.Transaction{UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 100}, Description: "x"}, core.ErrEmptyCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.tx); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTransactionServiceInlineSummaryFallback(t *testing.T) {
	// Without a publisher the monthly summary is rebuilt synchronously.
	store := newFakeStore()
	svc := NewTransactionService(store, nil)
	svc.now = fixedNow

	_, err := svc.Create(context.Background(), core.Transaction{
		UserID: "u1", Type: core.Income, Amount: core.Money{Cents: 200000}, Category: "Salary", Description: "march pay",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if store.summaryUpserts != 1 {
		t.Errorf("summary upserts = %d, want 1", store.summaryUpserts)
	}

	// A broken publisher degrades the same way instead of failing the write.
	store2 := newFakeStore()
	svc2 := NewTransactionService(store2, &fakePublisher{broken: true})
	svc2.now = fixedNow
	if _, err := svc2.Create(context.Background(), core.Transaction{
		UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 500}, Category: "Transport", Description: "bus",
	}); err != nil {
		t.Fatalf("Create() with broken publisher error = %v", err)
	}
	if store2.summaryUpserts != 1 {
		t.Errorf("summary upserts = %d, want 1 after publish failure", store2.summaryUpserts)
	}
}

func TestTransactionServiceUpdateDelete(t *testing.T) {
	store := newFakeStore()
	events := &fakePublisher{}
	svc := NewTransactionService(store, events)
	svc.now = fixedNow

	created, err := svc.Create(context.Background(), core.Transaction{
		UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 1200}, Category: "Food", Description: "lunch",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	created.Amount = core.Money{Cents: 1500}
	updated, err := svc.Update(context.Background(), created)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Amount.Cents != 1500 {
		t.Errorf("updated amount = %d, want 1500", updated.Amount.Cents)
	}

	if err := svc.Delete(context.Background(), "u1", created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(context.Background(), "u1", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	wantKinds := []string{amqp.KindTransactionCreated, amqp.KindTransactionUpdated, amqp.KindTransactionDeleted}
	if len(events.txKinds) != len(wantKinds) {
		t.Fatalf("published kinds = %v, want %v", events.txKinds, wantKinds)
	}
	for i, k := range wantKinds {
		if events.txKinds[i] != k {
			t.Errorf("event %d kind = %q, want %q", i, events.txKinds[i], k)
		}
	}
}

func TestTransactionServiceDeleteOtherUser(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)

	created, _ := svc.Create(context.Background(), core.Transaction{
		UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 100}, Category: "Food", Description: "x",
	})
	if err := svc.Delete(context.Background(), "u2", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete() as other user error = %v, want ErrNotFound", err)
	}
}

func TestSaveBudgetLimits(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)

	limits := []core.BudgetLimit{
		{Category: "Groceries", MonthlyLimit: core.Money{Cents: 50000}},
		{Category: "Transport", MonthlyLimit: core.Money{Cents: 10000}},
	}
	if err := svc.SaveBudgetLimits(context.Background(), "u1", limits); err != nil {
		t.Fatalf("SaveBudgetLimits() error = %v", err)
	}
	saved, _ := svc.ListBudgetLimits(context.Background(), "u1")
	if len(saved) != 2 {
		t.Fatalf("saved %d limits, want 2", len(saved))
	}
	for _, l := range saved {
		if l.UserID != "u1" {
			t.Errorf("limit %q user = %q, want u1", l.Category, l.UserID)
		}
	}
}

func TestSaveBudgetLimitsDuplicateCategory(t *testing.T) {
	svc := NewTransactionService(newFakeStore(), nil)

	err := svc.SaveBudgetLimits(context.Background(), "u1", []core.BudgetLimit{
		{Category: "Groceries", MonthlyLimit: core.Money{Cents: 50000}},
		{Category: "Groceries", MonthlyLimit: core.Money{Cents: 20000}},
	})
	if err == nil || !strings.Contains(err.Error(), "duplicate category") {
		t.Errorf("SaveBudgetLimits() error = %v, want duplicate category", err)
	}
}

func TestInsightsFromService(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)
	svc.now = fixedNow

	// One expense inside the current week so the trend list is non-empty.
	store.transactions[1] = core.Transaction{
		ID: 1, UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 4000},
		Category: "Groceries", Description: "shop",
		CreatedAt: time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC),
	}

	got, err := svc.Insights(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if len(got.Trends) != 1 {
		t.Fatalf("trends = %d, want 1", len(got.Trends))
	}
	if !got.Trends[0].IsNew {
		t.Error("trend for fresh category should be flagged new")
	}

	store.failList = true
	if _, err := svc.Insights(context.Background(), "u1"); err == nil {
		t.Error("Insights() with failing store returned nil error")
	}
}
