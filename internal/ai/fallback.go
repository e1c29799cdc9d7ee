package ai

import (
	"regexp"
	"strings"

	"moneytalk/internal/core"
)

// FallbackAnalyzer turns a transcript into a transaction without the AI,
// using regex amount extraction and a fixed keyword table. Intentionally
// simple and approximate; it only runs when the AI call fails.
type FallbackAnalyzer struct{}

func NewFallbackAnalyzer() *FallbackAnalyzer { return &FallbackAnalyzer{} }

var (
	amountRe     = regexp.MustCompile(`\$\s*([0-9]+(?:[.,][0-9]{1,2})?)`)
	bareAmountRe = regexp.MustCompile(`\b([0-9]+(?:[.,][0-9]{1,2})?)\b`)
)

var incomeKeywords = []string{
	"got paid", "was paid", "paycheck", "salary", "received", "earned",
	"income", "bonus", "refund", "deposit", "dividend",
}

// categoryRule maps a keyword to a category; first match wins, so more
// specific words come before generic ones.
type categoryRule struct {
	keyword  string
	category string
}

var expenseRules = []categoryRule{
	{"grocery", "Groceries"},
	{"groceries", "Groceries"},
	{"supermarket", "Groceries"},
	{"restaurant", "Dining"},
	{"dinner", "Dining"},
	{"lunch", "Dining"},
	{"breakfast", "Dining"},
	{"coffee", "Dining"},
	{"takeout", "Dining"},
	{"gas", "Transportation"},
	{"fuel", "Transportation"},
	{"uber", "Transportation"},
	{"taxi", "Transportation"},
	{"bus", "Transportation"},
	{"train", "Transportation"},
	{"parking", "Transportation"},
	{"movie", "Entertainment"},
	{"concert", "Entertainment"},
	{"netflix", "Entertainment"},
	{"spotify", "Entertainment"},
	{"game", "Entertainment"},
	{"clothes", "Shopping"},
	{"shoes", "Shopping"},
	{"amazon", "Shopping"},
	{"shopping", "Shopping"},
	{"electric", "Utilities"},
	{"internet", "Utilities"},
	{"phone bill", "Utilities"},
	{"water bill", "Utilities"},
	{"utility", "Utilities"},
	{"doctor", "Healthcare"},
	{"pharmacy", "Healthcare"},
	{"medicine", "Healthcare"},
	{"dentist", "Healthcare"},
	{"rent", "Housing"},
	{"mortgage", "Housing"},
	{"tuition", "Education"},
	{"course", "Education"},
	{"textbook", "Education"},
	{"flight", "Travel"},
	{"hotel", "Travel"},
	{"vacation", "Travel"},
	{"trip", "Travel"},
}

var incomeRules = []categoryRule{
	{"salary", "Salary"},
	{"paycheck", "Salary"},
	{"wages", "Salary"},
	{"freelance", "Freelance"},
	{"client", "Freelance"},
	{"gig", "Freelance"},
	{"dividend", "Investment"},
	{"interest", "Investment"},
	{"stock", "Investment"},
}

// Analyze extracts {type, category, amount} from a transcript. Confidence
// starts low and is boosted per keyword hit, capped at 0.9 since a keyword
// match is never certainty.
func (a *FallbackAnalyzer) Analyze(transcript string) AnalyzedTransaction {
	lower := strings.ToLower(transcript)

	matches := 0

	txType := core.Expense
	for _, kw := range incomeKeywords {
		if strings.Contains(lower, kw) {
			txType = core.Income
			matches++
			break
		}
	}

	rules := expenseRules
	if txType == core.Income {
		rules = incomeRules
	}
	category := "Other"
	for _, rule := range rules {
		if strings.Contains(lower, rule.keyword) {
			category = rule.category
			matches++
			break
		}
	}

	confidence := 0.5 + 0.15*float64(matches)
	if confidence > 0.9 {
		confidence = 0.9
	}

	return AnalyzedTransaction{
		Transcript:  transcript,
		Type:        txType,
		Category:    category,
		Amount:      extractAmount(transcript),
		Description: strings.TrimSpace(transcript),
		Confidence:  confidence,
	}
}

func extractAmount(s string) core.Money {
	m := amountRe.FindStringSubmatch(s)
	if m == nil {
		m = bareAmountRe.FindStringSubmatch(s)
	}
	if m == nil {
		return core.Money{}
	}
	cents, err := core.ParseDecimalToCents(m[1])
	if err != nil {
		return core.Money{}
	}
	return core.Money{Cents: cents}
}
