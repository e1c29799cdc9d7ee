package ai

import (
	"fmt"
	"strings"

	"moneytalk/internal/core"
)

func analyzeSystemPrompt() string {
	return fmt.Sprintf(`Return only minified JSON in one line. No comments. No markdown.

You turn a spoken note about money into one transaction.

RULES:
- type MUST be "income" or "expense".
- category MUST be one of: %s for expenses, %s for income.
- amount is a positive decimal number in dollars.
- description is a short human-readable summary of the note.
- confidence is your certainty in (0, 1].

OUTPUT JSON SCHEMA:
{"type":string,"category":string,"amount":number,"description":string,"confidence":number}`,
		strings.Join(core.ExpenseCategories, ", "),
		strings.Join(core.IncomeCategories, ", "))
}

func recommendSystemPrompt() string {
	return `Return only minified JSON in one line. No comments. No markdown.

You are a personal budgeting advisor. Given a spending summary and the
current economic context, produce 3 to 5 concrete recommendations.

RULES:
- impact MUST be "high", "medium" or "low".
- savings is the estimated monthly dollar amount saved, omit when unknown.
- actionItems are short imperative steps.
- confidence is your certainty in (0, 1].

OUTPUT JSON SCHEMA:
{"recommendations":[{"type":string,"title":string,"description":string,"impact":string,"savings":number,"actionItems":[string],"economicContext":string,"confidence":number}]}`
}

// BuildTransactionSummary renders the textual summary block the
// recommendation prompt runs on: current vs previous month income/expense,
// category breakdown, and budget utilization.
func BuildTransactionSummary(current, previous core.MonthlySummary, limits []core.BudgetLimit) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current month (%d-%02d): income $%.2f, expenses $%.2f, net $%.2f\n",
		current.Year, current.Month, current.Income.Dollars(), current.Expense.Dollars(), current.Net().Dollars())
	fmt.Fprintf(&b, "Previous month (%d-%02d): income $%.2f, expenses $%.2f, net $%.2f\n",
		previous.Year, previous.Month, previous.Income.Dollars(), previous.Expense.Dollars(), previous.Net().Dollars())

	if len(current.ByCategory) > 0 {
		b.WriteString("Current month spending by category:\n")
		for _, ca := range current.ByCategory {
			fmt.Fprintf(&b, "- %s: $%.2f\n", ca.Name, ca.Amount.Dollars())
		}
	}

	if len(limits) > 0 {
		spend := make(map[string]int64, len(current.ByCategory))
		for _, ca := range current.ByCategory {
			spend[ca.Name] = ca.Amount.Cents
		}
		b.WriteString("Budget utilization this month:\n")
		for _, l := range limits {
			used := float64(spend[l.Category]) / float64(l.MonthlyLimit.Cents) * 100
			fmt.Fprintf(&b, "- %s: $%.2f of $%.2f (%.0f%%)\n",
				l.Category, core.Money{Cents: spend[l.Category]}.Dollars(), l.MonthlyLimit.Dollars(), used)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// EconomicContext is the static context block attached to every
// recommendation request.
func EconomicContext() string {
	return strings.TrimSpace(`
Economic context:
- Consumer prices continue to rise moderately; groceries and dining out are the categories most affected.
- Interest rates remain elevated, so carrying credit card balances is expensive and savings accounts pay meaningful interest.
- Subscription services keep creeping upward in price; annual plans often undercut monthly ones.
`)
}
