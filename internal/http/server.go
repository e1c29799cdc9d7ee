// Package http exposes the MoneyTalk JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"moneytalk/internal/ai"
	"moneytalk/internal/cache"
	"moneytalk/internal/core"
	"moneytalk/internal/insights"
	applog "moneytalk/internal/log"
	"moneytalk/internal/services"
)

// TransactionAPI is the transaction and budget surface the handlers call.
type TransactionAPI interface {
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	Get(ctx context.Context, userID string, id int64) (core.Transaction, error)
	List(ctx context.Context, userID string) ([]core.Transaction, error)
	Update(ctx context.Context, t core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, userID string, id int64) error
	SaveBudgetLimits(ctx context.Context, userID string, limits []core.BudgetLimit) error
	ListBudgetLimits(ctx context.Context, userID string) ([]core.BudgetLimit, error)
	Insights(ctx context.Context, userID string) (insights.Insights, error)
}

// RecommendationAPI is the AI recommendation surface.
type RecommendationAPI interface {
	Get(ctx context.Context, userID string) (core.CachedRecommendations, bool, error)
	Generate(ctx context.Context, userID string) (core.CachedRecommendations, error)
	ManualRefresh(ctx context.Context, userID string) (core.CachedRecommendations, error)
}

// VoiceAPI turns voice notes into transaction drafts.
type VoiceAPI interface {
	Analyze(ctx context.Context, userID, audioBase64, clientTranscript string) (ai.AnalyzedTransaction, bool, error)
}

// ProfileAPI manages per-user settings.
type ProfileAPI interface {
	Profile(ctx context.Context, userID string) (core.UserProfile, error)
	SaveAPIKey(ctx context.Context, userID, apiKey string) error
}

// BillingAPI reads subscription state and applies provider webhooks.
type BillingAPI interface {
	Subscription(ctx context.Context, userID string) (core.Subscription, error)
	VerifySecret(got string) bool
	ApplyWebhook(ctx context.Context, ev services.WebhookEvent) error
}

// Deps collects everything the server needs.
type Deps struct {
	Transactions    TransactionAPI
	Recommendations RecommendationAPI
	Voice           VoiceAPI
	Profile         ProfileAPI
	Billing         BillingAPI

	// InsightsTTL bounds how long a computed insights payload is served
	// from memory before being recomputed.
	InsightsTTL time.Duration

	// Ready reports backend health for the readiness probe.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server

	tx      TransactionAPI
	recs    RecommendationAPI
	voice   VoiceAPI
	profile ProfileAPI
	billing BillingAPI
	ready   func(ctx context.Context) error

	rateLimiter   *rateLimiter
	metrics       *securityMetrics
	insightsCache *cache.LRUCache[insights.Insights]
	caches        *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	ttl := deps.InsightsTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tx:            deps.Transactions,
		recs:          deps.Recommendations,
		voice:         deps.Voice,
		profile:       deps.Profile,
		billing:       deps.Billing,
		ready:         deps.Ready,
		rateLimiter:   newRateLimiter(),
		metrics:       &securityMetrics{},
		insightsCache: cache.NewLRUCache[insights.Insights](500, ttl),
		caches:        cache.NewManager(),
	}

	s.caches.Register(s.insightsCache)
	s.caches.StartCleanup(ttl)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/transactions", s.withMiddleware(limitWrites, s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.withMiddleware(limitNone, s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.withMiddleware(limitNone, s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withMiddleware(limitWrites, s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(limitWrites, s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budgets", s.withMiddleware(limitNone, s.handleListBudgets))
	mux.HandleFunc("PUT /api/budgets", s.withMiddleware(limitWrites, s.handleSaveBudgets))

	mux.HandleFunc("GET /api/insights", s.withMiddleware(limitNone, s.handleInsights))

	mux.HandleFunc("GET /api/recommendations", s.withMiddleware(limitNone, s.handleGetRecommendations))
	mux.HandleFunc("POST /api/recommendations/generate", s.withMiddleware(limitAI, s.handleGenerateRecommendations))
	mux.HandleFunc("POST /api/recommendations/refresh", s.withMiddleware(limitAI, s.handleRefreshRecommendations))

	mux.HandleFunc("POST /api/voice/analyze", s.withMiddleware(limitAI, s.handleVoiceAnalyze))

	mux.HandleFunc("GET /api/profile", s.withMiddleware(limitNone, s.handleGetProfile))
	mux.HandleFunc("PUT /api/profile", s.withMiddleware(limitWrites, s.handleSaveProfile))

	mux.HandleFunc("GET /api/billing/subscription", s.withMiddleware(limitNone, s.handleGetSubscription))
	// The webhook authenticates with a shared secret, not a user header.
	mux.HandleFunc("POST /webhooks/billing", s.withRequestLog(s.handleBillingWebhook))

	return s
}

// Shutdown stops the HTTP server and the cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware applies request logging, security headers, rate limiting,
// and user scoping. Every /api route requires the X-User-ID header.
func (s *Server) withMiddleware(limit limitClass, next http.HandlerFunc) http.HandlerFunc {
	return s.withRequestLog(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)

		if !s.rateLimiter.allow(clientIP, limit, s.metrics) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		if userID(r) == "" {
			writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}

		next(w, r)
	})
}

// withRequestLog adds a request ID, response headers, and start/finish logs.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request",
				applog.FieldRequestID, requestID, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Request-ID", requestID)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, extractClientIP(r))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
