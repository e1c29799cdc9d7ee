package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"moneytalk/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// SQLiteRepository owns persistence for all MoneyTalk tables. All row access
// is scoped by user id; there is no cross-user query surface.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports database health for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- transactions ---

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, type, amount_cents, category, description, audio_transcript, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, string(t.Type), t.Amount.Cents, t.Category, t.Description, t.AudioTranscript, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"category", t.Category,
		"amount_cents", t.Amount.Cents)

	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, amount_cents, category, description, audio_transcript, created_at, updated_at
		FROM transactions WHERE id = ? AND user_id = ?`, id, userID)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns all of a user's transactions, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount_cents, category, description, audio_transcript, created_at, updated_at
		FROM transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// ListUserIDs returns every user that owns at least one transaction.
func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, amount_cents = ?, category = ?, description = ?, audio_transcript = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(t.Type), t.Amount.Cents, t.Category, t.Description, t.AudioTranscript, t.UpdatedAt, t.ID, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Transaction{}, ErrNotFound
	}

	return r.GetTransaction(ctx, t.UserID, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "user_id", userID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t     core.Transaction
		ttype string
		cents int64
	)
	err := row.Scan(&t.ID, &t.UserID, &ttype, &cents, &t.Category, &t.Description, &t.AudioTranscript, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(ttype)
	t.Amount = core.Money{Cents: cents}
	return t, nil
}

// --- budget limits ---

// ReplaceBudgetLimits replaces a user's budget limits wholesale
// (delete-all-then-insert) inside one transaction.
func (r *SQLiteRepository) ReplaceBudgetLimits(ctx context.Context, userID string, limits []core.BudgetLimit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_limits WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear budget limits: %w", err)
	}

	for _, l := range limits {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO budget_limits (user_id, category, monthly_limit_cents)
			VALUES (?, ?, ?)`, userID, l.Category, l.MonthlyLimit.Cents); err != nil {
			return fmt.Errorf("insert budget limit %s: %w", l.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget limits: %w", err)
	}

	slog.InfoContext(ctx, "Budget limits replaced", "user_id", userID, "count", len(limits))
	return nil
}

func (r *SQLiteRepository) ListBudgetLimits(ctx context.Context, userID string) ([]core.BudgetLimit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category, monthly_limit_cents
		FROM budget_limits WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budget limits: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetLimit
	for rows.Next() {
		var (
			l     core.BudgetLimit
			cents int64
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.Category, &cents); err != nil {
			return nil, fmt.Errorf("scan budget limit: %w", err)
		}
		l.MonthlyLimit = core.Money{Cents: cents}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget limits: %w", err)
	}
	return out, nil
}

// --- user profiles ---

func (r *SQLiteRepository) GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error) {
	var p core.UserProfile
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, api_key, created_at, updated_at
		FROM user_profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.APIKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.UserProfile{}, ErrNotFound
		}
		return core.UserProfile{}, fmt.Errorf("get user profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) UpsertUserProfile(ctx context.Context, p core.UserProfile) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, api_key, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET api_key = excluded.api_key, updated_at = excluded.updated_at`,
		p.UserID, p.APIKey, now, now)
	if err != nil {
		return fmt.Errorf("upsert user profile: %w", err)
	}
	return nil
}

// --- recommendations mirror ---

// SaveRecommendations writes a user's recommendation slot to the
// server-side mirror.
func (r *SQLiteRepository) SaveRecommendations(ctx context.Context, userID string, c core.CachedRecommendations) error {
	payload, err := json.Marshal(c.Data)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ai_recommendations (user_id, payload, generated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET payload = excluded.payload, generated_at = excluded.generated_at`,
		userID, string(payload), c.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("save recommendations: %w", err)
	}

	slog.InfoContext(ctx, "Recommendations mirrored", "user_id", userID, "count", len(c.Data))
	return nil
}

func (r *SQLiteRepository) GetRecommendations(ctx context.Context, userID string) (core.CachedRecommendations, error) {
	var (
		payload     string
		generatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT payload, generated_at FROM ai_recommendations WHERE user_id = ?`, userID).
		Scan(&payload, &generatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.CachedRecommendations{}, ErrNotFound
		}
		return core.CachedRecommendations{}, fmt.Errorf("get recommendations: %w", err)
	}

	var data []core.Recommendation
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return core.CachedRecommendations{}, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	return core.CachedRecommendations{Data: data, Timestamp: generatedAt}, nil
}

func (r *SQLiteRepository) DeleteRecommendations(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ai_recommendations WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete recommendations: %w", err)
	}
	return nil
}

// --- monthly summaries ---

type categoryAmountRow struct {
	Name  string `json:"name"`
	Cents int64  `json:"cents"`
}

func (r *SQLiteRepository) UpsertMonthlySummary(ctx context.Context, s core.MonthlySummary) error {
	byCategory := make([]categoryAmountRow, len(s.ByCategory))
	for i, ca := range s.ByCategory {
		byCategory[i] = categoryAmountRow{Name: ca.Name, Cents: ca.Amount.Cents}
	}
	payload, err := json.Marshal(byCategory)
	if err != nil {
		return fmt.Errorf("marshal category breakdown: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO monthly_summaries (user_id, year, month, income_cents, expense_cents, by_category, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, year, month) DO UPDATE SET
			income_cents = excluded.income_cents,
			expense_cents = excluded.expense_cents,
			by_category = excluded.by_category,
			updated_at = excluded.updated_at`,
		s.UserID, s.Year, s.Month, s.Income.Cents, s.Expense.Cents, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert monthly summary: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetMonthlySummary(ctx context.Context, userID string, year, month int) (core.MonthlySummary, error) {
	var (
		s       core.MonthlySummary
		income  int64
		expense int64
		payload string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, year, month, income_cents, expense_cents, by_category
		FROM monthly_summaries WHERE user_id = ? AND year = ? AND month = ?`, userID, year, month).
		Scan(&s.UserID, &s.Year, &s.Month, &income, &expense, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.MonthlySummary{}, ErrNotFound
		}
		return core.MonthlySummary{}, fmt.Errorf("get monthly summary: %w", err)
	}

	s.Income = core.Money{Cents: income}
	s.Expense = core.Money{Cents: expense}

	var rows []categoryAmountRow
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return core.MonthlySummary{}, fmt.Errorf("unmarshal category breakdown: %w", err)
	}
	for _, row := range rows {
		s.ByCategory = append(s.ByCategory, core.CategoryAmount{Name: row.Name, Amount: core.Money{Cents: row.Cents}})
	}
	return s, nil
}

// ComputeMonthlySummary aggregates a user's transactions for one calendar
// month straight from the transactions table.
func (r *SQLiteRepository) ComputeMonthlySummary(ctx context.Context, userID string, year, month int) (core.MonthlySummary, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := r.db.QueryContext(ctx, `
		SELECT type, category, SUM(amount_cents)
		FROM transactions
		WHERE user_id = ? AND created_at >= ? AND created_at < ?
		GROUP BY type, category
		ORDER BY SUM(amount_cents) DESC`, userID, start, end)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("aggregate month: %w", err)
	}
	defer rows.Close()

	s := core.MonthlySummary{UserID: userID, Year: year, Month: month}
	for rows.Next() {
		var (
			ttype    string
			category string
			cents    int64
		)
		if err := rows.Scan(&ttype, &category, &cents); err != nil {
			return core.MonthlySummary{}, fmt.Errorf("scan aggregate: %w", err)
		}
		switch core.TransactionType(ttype) {
		case core.Income:
			s.Income.Cents += cents
		case core.Expense:
			s.Expense.Cents += cents
			s.ByCategory = append(s.ByCategory, core.CategoryAmount{Name: category, Amount: core.Money{Cents: cents}})
		}
	}
	if err := rows.Err(); err != nil {
		return core.MonthlySummary{}, fmt.Errorf("iterate aggregates: %w", err)
	}
	return s, nil
}

// --- subscriptions ---

func (r *SQLiteRepository) GetSubscription(ctx context.Context, userID string) (core.Subscription, error) {
	var (
		s   core.Subscription
		end sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, plan, status, current_period_end, updated_at
		FROM subscriptions WHERE user_id = ?`, userID).
		Scan(&s.UserID, &s.Plan, &s.Status, &end, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Subscription{}, ErrNotFound
		}
		return core.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	if end.Valid {
		s.CurrentPeriodEnd = end.Time
	}
	return s, nil
}

// UpsertSubscription applies a billing webhook event. This is the only
// write path into the subscriptions table.
func (r *SQLiteRepository) UpsertSubscription(ctx context.Context, s core.Subscription) error {
	var end any
	if !s.CurrentPeriodEnd.IsZero() {
		end = s.CurrentPeriodEnd.UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, plan, status, current_period_end, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = excluded.plan,
			status = excluded.status,
			current_period_end = excluded.current_period_end,
			updated_at = excluded.updated_at`,
		s.UserID, s.Plan, s.Status, end, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	slog.InfoContext(ctx, "Subscription updated", "user_id", s.UserID, "plan", s.Plan, "status", s.Status)
	return nil
}
