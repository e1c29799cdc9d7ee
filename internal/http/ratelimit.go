package http

import (
	"sync"
	"sync/atomic"
	"time"
)

// limitClass selects which per-minute budget a route draws from. AI-backed
// routes get a much smaller budget since every call costs real money.
type limitClass int

const (
	limitNone   limitClass = iota // reads: no limiting
	limitWrites                   // mutations: generous budget
	limitAI                       // AI calls: tight budget
)

const (
	writesPerMinute = 60
	aiPerMinute     = 10
)

// rateLimiter implements a simple in-memory rate limiter per client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	writes      int
	aiCalls     int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries.
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop shuts down the cleanup goroutine.
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

// allow checks whether a request from the given IP fits its class budget.
func (rl *rateLimiter) allow(clientIP string, class limitClass, metrics *securityMetrics) bool {
	if class == limitNone {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		client = &clientInfo{}
		rl.clients[clientIP] = client
	}

	// Reset counters after a minute of inactivity
	if now.Sub(client.lastRequest) > time.Minute {
		client.writes = 0
		client.aiCalls = 0
	}
	client.lastRequest = now

	var over bool
	switch class {
	case limitWrites:
		client.writes++
		over = client.writes > writesPerMinute
	case limitAI:
		client.aiCalls++
		over = client.aiCalls > aiPerMinute
	}

	if over {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
