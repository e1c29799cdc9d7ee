package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"moneytalk/internal/ai"
	"moneytalk/internal/core"
	"moneytalk/internal/insights"
)

// writeJSON serializes v with a JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError emits the standard error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// transactionResponse is the wire form of a stored transaction. Amounts go
// out as dollar floats alongside exact cents.
type transactionResponse struct {
	ID              int64   `json:"id"`
	Type            string  `json:"type"`
	Amount          float64 `json:"amount"`
	AmountCents     int64   `json:"amountCents"`
	Category        string  `json:"category"`
	Description     string  `json:"description"`
	AudioTranscript string  `json:"audioTranscript,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		Type:            string(t.Type),
		Amount:          t.Amount.Dollars(),
		AmountCents:     t.Amount.Cents,
		Category:        t.Category,
		Description:     t.Description,
		AudioTranscript: t.AudioTranscript,
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionList(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

type budgetLimitResponse struct {
	Category          string  `json:"category"`
	MonthlyLimit      float64 `json:"monthlyLimit"`
	MonthlyLimitCents int64   `json:"monthlyLimitCents"`
}

func toBudgetList(limits []core.BudgetLimit) []budgetLimitResponse {
	out := make([]budgetLimitResponse, 0, len(limits))
	for _, l := range limits {
		out = append(out, budgetLimitResponse{
			Category:          l.Category,
			MonthlyLimit:      l.MonthlyLimit.Dollars(),
			MonthlyLimitCents: l.MonthlyLimit.Cents,
		})
	}
	return out
}

type categoryTrendResponse struct {
	Category  string  `json:"category"`
	LastWeek  float64 `json:"lastWeek"`
	PriorWeek float64 `json:"priorWeek"`
	ChangePct float64 `json:"changePct"`
	Direction string  `json:"direction"`
	IsNew     bool    `json:"isNew"`
}

type budgetAlertResponse struct {
	Category   string  `json:"category"`
	Spent      float64 `json:"spent"`
	Budget     float64 `json:"budget"`
	OverBudget float64 `json:"overBudget"`
}

type insightsResponse struct {
	Trends         []categoryTrendResponse  `json:"trends"`
	BudgetAlerts   []budgetAlertResponse    `json:"budgetAlerts"`
	WeekendPattern *insights.WeekendPattern `json:"weekendPattern,omitempty"`
}

func toInsightsResponse(in insights.Insights) insightsResponse {
	out := insightsResponse{
		Trends:         make([]categoryTrendResponse, 0, len(in.Trends)),
		BudgetAlerts:   make([]budgetAlertResponse, 0, len(in.BudgetAlerts)),
		WeekendPattern: in.WeekendPattern,
	}
	for _, t := range in.Trends {
		out.Trends = append(out.Trends, categoryTrendResponse{
			Category:  t.Category,
			LastWeek:  t.LastWeek.Dollars(),
			PriorWeek: t.PriorWeek.Dollars(),
			ChangePct: t.ChangePct,
			Direction: t.Direction,
			IsNew:     t.IsNew,
		})
	}
	for _, a := range in.BudgetAlerts {
		out.BudgetAlerts = append(out.BudgetAlerts, budgetAlertResponse{
			Category:   a.Category,
			Spent:      a.Spent.Dollars(),
			Budget:     a.Budget.Dollars(),
			OverBudget: a.OverBudget.Dollars(),
		})
	}
	return out
}

type recommendationsResponse struct {
	Cached      bool                  `json:"cached"`
	GeneratedAt string                `json:"generatedAt,omitempty"`
	Data        []core.Recommendation `json:"data"`
}

func toRecommendationsResponse(slot core.CachedRecommendations, cached bool) recommendationsResponse {
	out := recommendationsResponse{Cached: cached, Data: slot.Data}
	if out.Data == nil {
		out.Data = []core.Recommendation{}
	}
	if !slot.Timestamp.IsZero() {
		out.GeneratedAt = slot.Timestamp.UTC().Format(time.RFC3339)
	}
	return out
}

// voiceAnalyzeResponse is a transaction draft: nothing is stored until the
// user confirms it through POST /api/transactions.
type voiceAnalyzeResponse struct {
	Transcript   string  `json:"transcript"`
	Type         string  `json:"type"`
	Category     string  `json:"category"`
	Amount       float64 `json:"amount"`
	AmountCents  int64   `json:"amountCents"`
	Description  string  `json:"description"`
	Confidence   float64 `json:"confidence"`
	UsedFallback bool    `json:"usedFallback"`
}

func toVoiceResponse(a ai.AnalyzedTransaction, usedFallback bool) voiceAnalyzeResponse {
	return voiceAnalyzeResponse{
		Transcript:   a.Transcript,
		Type:         string(a.Type),
		Category:     a.Category,
		Amount:       a.Amount.Dollars(),
		AmountCents:  a.Amount.Cents,
		Description:  a.Description,
		Confidence:   a.Confidence,
		UsedFallback: usedFallback,
	}
}

type subscriptionResponse struct {
	Plan             string `json:"plan"`
	Status           string `json:"status"`
	Active           bool   `json:"active"`
	CurrentPeriodEnd string `json:"currentPeriodEnd,omitempty"`
}

func toSubscriptionResponse(sub core.Subscription, now time.Time) subscriptionResponse {
	out := subscriptionResponse{
		Plan:   sub.Plan,
		Status: sub.Status,
		Active: sub.Active(now),
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		out.CurrentPeriodEnd = sub.CurrentPeriodEnd.UTC().Format(time.RFC3339)
	}
	return out
}

// profileResponse never echoes the stored API key, only whether one is set.
type profileResponse struct {
	UserID    string `json:"userId"`
	HasAPIKey bool   `json:"hasApiKey"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func toProfileResponse(p core.UserProfile) profileResponse {
	resp := profileResponse{UserID: p.UserID, HasAPIKey: p.APIKey != ""}
	if !p.UpdatedAt.IsZero() {
		resp.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
