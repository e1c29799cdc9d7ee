package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"moneytalk/internal/ai"
	"moneytalk/internal/core"
	"moneytalk/internal/insights"
	"moneytalk/internal/services"
	"moneytalk/internal/storage"
)

// apiStub scripts the service surfaces behind the handlers.
type apiStub struct {
	transactions map[int64]core.Transaction
	nextID       int64
	limits       []core.BudgetLimit
	insights     insights.Insights
	insightCalls int

	slot    core.CachedRecommendations
	hasSlot bool
	recsErr error

	analyzed     ai.AnalyzedTransaction
	usedFallback bool
	voiceErr     error

	sub      core.Subscription
	hasSub   bool
	secret   string
	webhooks []services.WebhookEvent

	profiles map[string]core.UserProfile
}

func newAPIStub() *apiStub {
	return &apiStub{
		transactions: make(map[int64]core.Transaction),
		profiles:     make(map[string]core.UserProfile),
		secret:       "hook-secret",
	}
}

func (a *apiStub) Create(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	a.nextID++
	t.ID = a.nextID
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	a.transactions[t.ID] = t
	return t, nil
}

func (a *apiStub) Get(_ context.Context, userID string, id int64) (core.Transaction, error) {
	t, ok := a.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (a *apiStub) List(_ context.Context, userID string) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range a.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (a *apiStub) Update(_ context.Context, t core.Transaction) (core.Transaction, error) {
	existing, ok := a.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return core.Transaction{}, storage.ErrNotFound
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	a.transactions[t.ID] = t
	return t, nil
}

func (a *apiStub) Delete(_ context.Context, userID string, id int64) error {
	t, ok := a.transactions[id]
	if !ok || t.UserID != userID {
		return storage.ErrNotFound
	}
	delete(a.transactions, id)
	return nil
}

func (a *apiStub) SaveBudgetLimits(_ context.Context, userID string, limits []core.BudgetLimit) error {
	seen := make(map[string]struct{})
	for i := range limits {
		limits[i].UserID = userID
		if _, dup := seen[limits[i].Category]; dup {
			return services.ErrDuplicateCategory
		}
		seen[limits[i].Category] = struct{}{}
	}
	a.limits = limits
	return nil
}

func (a *apiStub) ListBudgetLimits(context.Context, string) ([]core.BudgetLimit, error) {
	return a.limits, nil
}

func (a *apiStub) Insights(context.Context, string) (insights.Insights, error) {
	a.insightCalls++
	return a.insights, nil
}

func (a *apiStub) GetRecommendations(context.Context, string) (core.CachedRecommendations, bool, error) {
	return a.slot, a.hasSlot, a.recsErr
}

func (a *apiStub) Generate(context.Context, string) (core.CachedRecommendations, error) {
	if a.recsErr != nil {
		return core.CachedRecommendations{}, a.recsErr
	}
	a.hasSlot = true
	return a.slot, nil
}

func (a *apiStub) ManualRefresh(ctx context.Context, userID string) (core.CachedRecommendations, error) {
	return a.Generate(ctx, userID)
}

func (a *apiStub) Analyze(context.Context, string, string, string) (ai.AnalyzedTransaction, bool, error) {
	if a.voiceErr != nil {
		return ai.AnalyzedTransaction{}, false, a.voiceErr
	}
	return a.analyzed, a.usedFallback, nil
}

func (a *apiStub) Subscription(_ context.Context, userID string) (core.Subscription, error) {
	if !a.hasSub {
		return core.Subscription{UserID: userID, Plan: "free", Status: core.SubStatusCanceled}, nil
	}
	return a.sub, nil
}

func (a *apiStub) VerifySecret(got string) bool {
	return a.secret != "" && got == a.secret
}

func (a *apiStub) ApplyWebhook(_ context.Context, ev services.WebhookEvent) error {
	if ev.UserID == "" {
		return core.ErrEmptyUserID
	}
	a.webhooks = append(a.webhooks, ev)
	return nil
}

func (a *apiStub) Profile(_ context.Context, userID string) (core.UserProfile, error) {
	p, ok := a.profiles[userID]
	if !ok {
		return core.UserProfile{UserID: userID}, nil
	}
	return p, nil
}

func (a *apiStub) SaveAPIKey(_ context.Context, userID, apiKey string) error {
	a.profiles[userID] = core.UserProfile{UserID: userID, APIKey: apiKey, UpdatedAt: time.Now().UTC()}
	return nil
}

// recsAPI adapts apiStub to the RecommendationAPI Get name.
type recsAPI struct{ *apiStub }

func (r recsAPI) Get(ctx context.Context, userID string) (core.CachedRecommendations, bool, error) {
	return r.GetRecommendations(ctx, userID)
}

func newTestServer(t *testing.T, stub *apiStub) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", Deps{
		Transactions:    stub,
		Recommendations: recsAPI{stub},
		Voice:           stub,
		Profile:         stub,
		Billing:         stub,
		InsightsTTL:     time.Minute,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func doRequest(s *Server, method, path, userID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, newAPIStub())

	if rec := doRequest(s, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d, want 200", rec.Code)
	}
}

func TestReadyzBackendDown(t *testing.T) {
	stub := newAPIStub()
	s := NewServer("127.0.0.1:0", Deps{
		Transactions:    stub,
		Recommendations: recsAPI{stub},
		Voice:           stub,
		Profile:         stub,
		Billing:         stub,
		Ready:           func(context.Context) error { return errors.New("db gone") },
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	if rec := doRequest(s, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing backend = %d, want 503", rec.Code)
	}
}

func TestAPIRequiresUserHeader(t *testing.T) {
	s := newTestServer(t, newAPIStub())

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/transactions"},
		{http.MethodGet, "/api/budgets"},
		{http.MethodGet, "/api/insights"},
		{http.MethodGet, "/api/recommendations"},
		{http.MethodGet, "/api/profile"},
		{http.MethodGet, "/api/billing/subscription"},
	}
	for _, p := range paths {
		if rec := doRequest(s, p.method, p.path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without user header = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestAIRouteRateLimited(t *testing.T) {
	stub := newAPIStub()
	stub.analyzed = ai.AnalyzedTransaction{
		Type: core.Expense, Category: "Groceries",
		Amount: core.Money{Cents: 2500}, Description: "groceries", Confidence: 0.9,
	}
	s := newTestServer(t, stub)

	var limited bool
	for i := 0; i < aiPerMinute+1; i++ {
		rec := doRequest(s, http.MethodPost, "/api/voice/analyze", "u1",
			`{"transcript":"I spent $25 on groceries"}`)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if i < aiPerMinute {
				t.Fatalf("rate limited after %d requests, budget is %d", i+1, aiPerMinute)
			}
		}
	}
	if !limited {
		t.Error("AI route never rate limited")
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, newAPIStub())

	rec := doRequest(s, http.MethodGet, "/api/transactions", "u1", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("response missing security headers")
	}
}
