package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"moneytalk/internal/core"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestTransactionCRUD(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      "user-1",
		Type:        core.Expense,
		Amount:      core.Money{Cents: 2500},
		Category:    "Groceries",
		Description: "weekly shopping",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := repo.GetTransaction(ctx, "user-1", created.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Amount.Cents != 2500 || got.Category != "Groceries" || got.Type != core.Expense {
		t.Errorf("unexpected transaction: %+v", got)
	}

	// Ownership scoping: another user cannot see the row
	if _, err := repo.GetTransaction(ctx, "user-2", created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user read = %v, want ErrNotFound", err)
	}

	got.Amount = core.Money{Cents: 3000}
	got.Description = "bigger shopping"
	got.AudioTranscript = "spent thirty dollars on groceries"
	updated, err := repo.UpdateTransaction(ctx, got)
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if updated.Amount.Cents != 3000 || updated.Description != "bigger shopping" {
		t.Errorf("unexpected update result: %+v", updated)
	}
	if updated.AudioTranscript != "spent thirty dollars on groceries" {
		t.Errorf("AudioTranscript = %q, not persisted by update", updated.AudioTranscript)
	}

	list, err := repo.ListTransactions(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}

	if err := repo.DeleteTransaction(ctx, "user-1", created.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "user-1", created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestReplaceBudgetLimits(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	first := []core.BudgetLimit{
		{UserID: "user-1", Category: "Groceries", MonthlyLimit: core.Money{Cents: 40000}},
		{UserID: "user-1", Category: "Dining", MonthlyLimit: core.Money{Cents: 20000}},
	}
	if err := repo.ReplaceBudgetLimits(ctx, "user-1", first); err != nil {
		t.Fatalf("ReplaceBudgetLimits: %v", err)
	}

	// Wholesale replace drops the old set
	second := []core.BudgetLimit{
		{UserID: "user-1", Category: "Travel", MonthlyLimit: core.Money{Cents: 100000}},
	}
	if err := repo.ReplaceBudgetLimits(ctx, "user-1", second); err != nil {
		t.Fatalf("ReplaceBudgetLimits (second): %v", err)
	}

	got, err := repo.ListBudgetLimits(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListBudgetLimits: %v", err)
	}
	if len(got) != 1 || got[0].Category != "Travel" {
		t.Errorf("unexpected limits after replace: %+v", got)
	}
}

func TestRecommendationsMirror(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if _, err := repo.GetRecommendations(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty mirror = %v, want ErrNotFound", err)
	}

	slot := core.CachedRecommendations{
		Data: []core.Recommendation{
			{Type: "savings", Title: "Trim subscriptions", Description: "Cancel unused services", Impact: "high", Confidence: 0.8},
		},
		Timestamp: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	if err := repo.SaveRecommendations(ctx, "user-1", slot); err != nil {
		t.Fatalf("SaveRecommendations: %v", err)
	}

	got, err := repo.GetRecommendations(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	if len(got.Data) != 1 || got.Data[0].Title != "Trim subscriptions" {
		t.Errorf("unexpected mirror payload: %+v", got.Data)
	}
	if !got.Timestamp.Equal(slot.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, slot.Timestamp)
	}

	if err := repo.DeleteRecommendations(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteRecommendations: %v", err)
	}
	if _, err := repo.GetRecommendations(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete = %v, want ErrNotFound", err)
	}
}

func TestMonthlySummaryRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	s := core.MonthlySummary{
		UserID:  "user-1",
		Year:    2024,
		Month:   3,
		Income:  core.Money{Cents: 500000},
		Expense: core.Money{Cents: 320000},
		ByCategory: []core.CategoryAmount{
			{Name: "Groceries", Amount: core.Money{Cents: 120000}},
			{Name: "Dining", Amount: core.Money{Cents: 80000}},
		},
	}
	if err := repo.UpsertMonthlySummary(ctx, s); err != nil {
		t.Fatalf("UpsertMonthlySummary: %v", err)
	}

	got, err := repo.GetMonthlySummary(ctx, "user-1", 2024, 3)
	if err != nil {
		t.Fatalf("GetMonthlySummary: %v", err)
	}
	if got.Income.Cents != 500000 || got.Expense.Cents != 320000 {
		t.Errorf("unexpected totals: %+v", got)
	}
	if len(got.ByCategory) != 2 || got.ByCategory[0].Name != "Groceries" {
		t.Errorf("unexpected breakdown: %+v", got.ByCategory)
	}
}

func TestComputeMonthlySummary(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	seed := []core.Transaction{
		{UserID: "user-1", Type: core.Income, Amount: core.Money{Cents: 500000}, Category: "Salary", Description: "march pay"},
		{UserID: "user-1", Type: core.Expense, Amount: core.Money{Cents: 12000}, Category: "Groceries", Description: "food"},
		{UserID: "user-1", Type: core.Expense, Amount: core.Money{Cents: 8000}, Category: "Groceries", Description: "more food"},
		{UserID: "user-2", Type: core.Expense, Amount: core.Money{Cents: 9999}, Category: "Dining", Description: "not ours"},
	}
	for _, tx := range seed {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	now := time.Now().UTC()
	got, err := repo.ComputeMonthlySummary(ctx, "user-1", now.Year(), int(now.Month()))
	if err != nil {
		t.Fatalf("ComputeMonthlySummary: %v", err)
	}
	if got.Income.Cents != 500000 {
		t.Errorf("Income = %d, want 500000", got.Income.Cents)
	}
	if got.Expense.Cents != 20000 {
		t.Errorf("Expense = %d, want 20000", got.Expense.Cents)
	}
	if len(got.ByCategory) != 1 || got.ByCategory[0].Name != "Groceries" || got.ByCategory[0].Amount.Cents != 20000 {
		t.Errorf("unexpected breakdown: %+v", got.ByCategory)
	}
}

func TestSubscriptionUpsert(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if _, err := repo.GetSubscription(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing subscription = %v, want ErrNotFound", err)
	}

	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.UpsertSubscription(ctx, core.Subscription{
		UserID: "user-1", Plan: "premium", Status: core.SubStatusActive, CurrentPeriodEnd: end,
	}); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}

	got, err := repo.GetSubscription(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if got.Plan != "premium" || got.Status != core.SubStatusActive {
		t.Errorf("unexpected subscription: %+v", got)
	}
	if !got.CurrentPeriodEnd.Equal(end) {
		t.Errorf("CurrentPeriodEnd = %v, want %v", got.CurrentPeriodEnd, end)
	}
}

func TestUserProfileUpsert(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.UpsertUserProfile(ctx, core.UserProfile{UserID: "user-1", APIKey: "sk-abc"}); err != nil {
		t.Fatalf("UpsertUserProfile: %v", err)
	}
	if err := repo.UpsertUserProfile(ctx, core.UserProfile{UserID: "user-1", APIKey: "sk-def"}); err != nil {
		t.Fatalf("UpsertUserProfile (update): %v", err)
	}

	got, err := repo.GetUserProfile(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUserProfile: %v", err)
	}
	if got.APIKey != "sk-def" {
		t.Errorf("APIKey = %q, want sk-def", got.APIKey)
	}
}
