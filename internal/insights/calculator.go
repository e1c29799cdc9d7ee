// Package insights computes spending trends, budget alerts, and pattern
// observations from a user's transaction history. Everything here is pure:
// outputs depend only on the inputs and the supplied clock, and are
// recomputed from scratch on every call.
package insights

import (
	"sort"
	"time"

	"moneytalk/internal/core"
)

const (
	// Trend classification thresholds, in percent.
	increaseThreshold = 5.0
	decreaseThreshold = -5.0

	// Weekend spending pattern: flag when the weekend share of total
	// expense exceeds this, against the typical-household reference.
	weekendSharePct     = 35.0
	weekendReferencePct = 28.0

	maxTrends = 5
)

const (
	DirectionIncreasing = "increasing"
	DirectionDecreasing = "decreasing"
	DirectionStable     = "stable"
)

type (
	// CategoryTrend compares one category's expenses in the current
	// calendar week against the same week one month prior.
	CategoryTrend struct {
		Category  string     `json:"category"`
		LastWeek  core.Money `json:"-"`
		PriorWeek core.Money `json:"-"`
		ChangePct float64    `json:"changePct"`
		Direction string     `json:"direction"`
		IsNew     bool       `json:"isNew"`
	}

	// BudgetAlert is emitted for every budget limit exceeded by the
	// category's current-month spend.
	BudgetAlert struct {
		Category   string     `json:"category"`
		Spent      core.Money `json:"-"`
		Budget     core.Money `json:"-"`
		OverBudget core.Money `json:"-"`
	}

	// WeekendPattern describes the weekend share of total expense.
	WeekendPattern struct {
		SharePct     float64 `json:"sharePct"`
		ReferencePct float64 `json:"referencePct"`
		Flagged      bool    `json:"flagged"`
	}

	Insights struct {
		Trends         []CategoryTrend
		BudgetAlerts   []BudgetAlert
		WeekendPattern *WeekendPattern
	}
)

// Compute derives all insights for one user. Transactions belonging to other
// users are the caller's bug; no filtering happens here.
func Compute(now time.Time, transactions []core.Transaction, limits []core.BudgetLimit) Insights {
	return Insights{
		Trends:         CategoryTrends(now, transactions),
		BudgetAlerts:   BudgetAlerts(now, transactions, limits),
		WeekendPattern: WeekendSpending(transactions),
	}
}

// weekStart returns the Monday 00:00 of the calendar week containing t.
func weekStart(t time.Time) time.Time {
	t = t.In(time.UTC)
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(weekday - 1))
}

func sumByCategory(transactions []core.Transaction, from, to time.Time) map[string]int64 {
	sums := make(map[string]int64)
	for _, tx := range transactions {
		if tx.Type != core.Expense {
			continue
		}
		at := tx.CreatedAt
		if at.Before(from) || !at.Before(to) {
			continue
		}
		sums[tx.Category] += tx.Amount.Cents
	}
	return sums
}

// CategoryTrends compares per-category expense sums in the current calendar
// week against the calendar week one month prior, classifies the change, and
// keeps the top categories by current-week amount.
func CategoryTrends(now time.Time, transactions []core.Transaction) []CategoryTrend {
	currentStart := weekStart(now)
	currentEnd := currentStart.AddDate(0, 0, 7)
	priorStart := weekStart(currentStart.AddDate(0, -1, 0))
	priorEnd := priorStart.AddDate(0, 0, 7)

	last := sumByCategory(transactions, currentStart, currentEnd)
	prior := sumByCategory(transactions, priorStart, priorEnd)

	categories := make(map[string]struct{}, len(last)+len(prior))
	for c := range last {
		categories[c] = struct{}{}
	}
	for c := range prior {
		categories[c] = struct{}{}
	}

	trends := make([]CategoryTrend, 0, len(categories))
	for c := range categories {
		lastCents := last[c]
		priorCents := prior[c]

		trend := CategoryTrend{
			Category:  c,
			LastWeek:  core.Money{Cents: lastCents},
			PriorWeek: core.Money{Cents: priorCents},
			Direction: DirectionStable,
		}

		switch {
		case priorCents > 0:
			trend.ChangePct = float64(lastCents-priorCents) / float64(priorCents) * 100
			if trend.ChangePct > increaseThreshold {
				trend.Direction = DirectionIncreasing
			} else if trend.ChangePct < decreaseThreshold {
				trend.Direction = DirectionDecreasing
			}
		case lastCents > 0:
			// No prior spending in this category at all
			trend.IsNew = true
			trend.ChangePct = 100
			trend.Direction = DirectionIncreasing
		}

		trends = append(trends, trend)
	}

	sort.Slice(trends, func(i, j int) bool {
		if trends[i].LastWeek.Cents != trends[j].LastWeek.Cents {
			return trends[i].LastWeek.Cents > trends[j].LastWeek.Cents
		}
		return trends[i].Category < trends[j].Category
	})

	if len(trends) > maxTrends {
		trends = trends[:maxTrends]
	}
	return trends
}

// BudgetAlerts emits one alert per budget limit whose category spend in the
// calendar month containing now exceeds the monthly limit.
func BudgetAlerts(now time.Time, transactions []core.Transaction, limits []core.BudgetLimit) []BudgetAlert {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	spend := sumByCategory(transactions, monthStart, monthEnd)

	var alerts []BudgetAlert
	for _, l := range limits {
		spent := spend[l.Category]
		if spent <= l.MonthlyLimit.Cents {
			continue
		}
		alerts = append(alerts, BudgetAlert{
			Category:   l.Category,
			Spent:      core.Money{Cents: spent},
			Budget:     l.MonthlyLimit,
			OverBudget: core.Money{Cents: spent - l.MonthlyLimit.Cents},
		})
	}
	return alerts
}

// WeekendSpending flags when the weekend share of total expense exceeds the
// threshold. Returns nil when either weekend or weekday spending is zero,
// since a share computed from one side only says nothing about habits.
func WeekendSpending(transactions []core.Transaction) *WeekendPattern {
	var weekend, weekday int64
	for _, tx := range transactions {
		if tx.Type != core.Expense {
			continue
		}
		switch tx.CreatedAt.Weekday() {
		case time.Saturday, time.Sunday:
			weekend += tx.Amount.Cents
		default:
			weekday += tx.Amount.Cents
		}
	}

	if weekend == 0 || weekday == 0 {
		return nil
	}

	share := float64(weekend) / float64(weekend+weekday) * 100
	return &WeekendPattern{
		SharePct:     share,
		ReferencePct: weekendReferencePct,
		Flagged:      share > weekendSharePct,
	}
}
