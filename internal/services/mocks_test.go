package services

import (
	"context"
	"errors"
	"time"

	"moneytalk/internal/ai"
	"moneytalk/internal/amqp"
	"moneytalk/internal/core"
	"moneytalk/internal/storage"
)

// fakeStore implements the storage surfaces the services need, in memory.
type fakeStore struct {
	nextID       int64
	transactions map[int64]core.Transaction
	limits       map[string][]core.BudgetLimit
	profiles     map[string]core.UserProfile
	mirror       map[string]core.CachedRecommendations
	summaries    map[string]core.MonthlySummary
	subs         map[string]core.Subscription

	summaryUpserts int
	failList       bool
}

// The fake has to satisfy every per-service storage surface at once.
var (
	_ TransactionStore    = (*fakeStore)(nil)
	_ RecommendationStore = (*fakeStore)(nil)
	_ ProfileStore        = (*fakeStore)(nil)
	_ APIKeySource        = (*fakeStore)(nil)
	_ BillingStore        = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions: make(map[int64]core.Transaction),
		limits:       make(map[string][]core.BudgetLimit),
		profiles:     make(map[string]core.UserProfile),
		mirror:       make(map[string]core.CachedRecommendations),
		summaries:    make(map[string]core.MonthlySummary),
		subs:         make(map[string]core.Subscription),
	}
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	f.nextID++
	t.ID = f.nextID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	f.transactions[t.ID] = t
	return t, nil
}

func (f *fakeStore) GetTransaction(_ context.Context, userID string, id int64) (core.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	if f.failList {
		return nil, errors.New("boom")
	}
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	existing, ok := f.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return core.Transaction{}, storage.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	f.transactions[t.ID] = t
	return t, nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, userID string, id int64) error {
	t, ok := f.transactions[id]
	if !ok || t.UserID != userID {
		return storage.ErrNotFound
	}
	delete(f.transactions, id)
	return nil
}

func (f *fakeStore) ReplaceBudgetLimits(_ context.Context, userID string, limits []core.BudgetLimit) error {
	f.limits[userID] = limits
	return nil
}

func (f *fakeStore) ListBudgetLimits(_ context.Context, userID string) ([]core.BudgetLimit, error) {
	return f.limits[userID], nil
}

func (f *fakeStore) GetUserProfile(_ context.Context, userID string) (core.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return core.UserProfile{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) UpsertUserProfile(_ context.Context, p core.UserProfile) error {
	p.UpdatedAt = fixedNow()
	f.profiles[p.UserID] = p
	return nil
}

func (f *fakeStore) GetRecommendations(_ context.Context, userID string) (core.CachedRecommendations, error) {
	c, ok := f.mirror[userID]
	if !ok {
		return core.CachedRecommendations{}, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) SaveRecommendations(_ context.Context, userID string, c core.CachedRecommendations) error {
	f.mirror[userID] = c
	return nil
}

func (f *fakeStore) DeleteRecommendations(_ context.Context, userID string) error {
	delete(f.mirror, userID)
	return nil
}

func (f *fakeStore) ComputeMonthlySummary(_ context.Context, userID string, year, month int) (core.MonthlySummary, error) {
	return core.MonthlySummary{UserID: userID, Year: year, Month: month}, nil
}

func (f *fakeStore) UpsertMonthlySummary(_ context.Context, s core.MonthlySummary) error {
	f.summaryUpserts++
	f.summaries[s.UserID] = s
	return nil
}

func (f *fakeStore) GetSubscription(_ context.Context, userID string) (core.Subscription, error) {
	s, ok := f.subs[userID]
	if !ok {
		return core.Subscription{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) UpsertSubscription(_ context.Context, s core.Subscription) error {
	f.subs[s.UserID] = s
	return nil
}

// fakePublisher records published events; fails when broken.
type fakePublisher struct {
	broken          bool
	txEvents        []amqp.TransactionEvent
	txKinds         []string
	recEvents       []amqp.RecommendationsEvent
}

func (f *fakePublisher) PublishTransactionEvent(_ context.Context, kind string, ev amqp.TransactionEvent) error {
	if f.broken {
		return errors.New("amqp down")
	}
	f.txKinds = append(f.txKinds, kind)
	f.txEvents = append(f.txEvents, ev)
	return nil
}

func (f *fakePublisher) PublishRecommendations(_ context.Context, userID string, data []core.Recommendation, generatedAt time.Time) error {
	if f.broken {
		return errors.New("amqp down")
	}
	f.recEvents = append(f.recEvents, amqp.RecommendationsEvent{UserID: userID, Data: data, GeneratedAt: generatedAt})
	return nil
}

// fakeAI scripts the AI client surface.
type fakeAI struct {
	transcript    string
	transcribeErr error
	analyzed      ai.AnalyzedTransaction
	analyzeErr    error
	recs          []core.Recommendation
	recsErr       error
	lastUserKey   string
}

func (f *fakeAI) Transcribe(_ context.Context, _ []byte, userKey string) (string, error) {
	f.lastUserKey = userKey
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func (f *fakeAI) AnalyzeTranscript(_ context.Context, transcript, userKey string) (ai.AnalyzedTransaction, error) {
	f.lastUserKey = userKey
	if f.analyzeErr != nil {
		return ai.AnalyzedTransaction{}, f.analyzeErr
	}
	out := f.analyzed
	out.Transcript = transcript
	return out, nil
}

func (f *fakeAI) GenerateRecommendations(_ context.Context, _, _, userKey string) ([]core.Recommendation, error) {
	f.lastUserKey = userKey
	if f.recsErr != nil {
		return nil, f.recsErr
	}
	return f.recs, nil
}
