package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthlySummary is a compact income/expense summary for one user in a
// specific year+month, maintained by the worker and fed into the
// recommendation prompt.
type MonthlySummary struct {
	UserID     string
	Year       int
	Month      int // 1-12
	Income     Money
	Expense    Money
	ByCategory []CategoryAmount // expense only
}

// Net returns income minus expense for the month.
func (s MonthlySummary) Net() Money {
	return Money{Cents: s.Income.Cents - s.Expense.Cents}
}
