package api

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimit builds chi middleware enforcing a per-client-IP token bucket of
// perMinute requests. Each route gets its own instance, so thresholds differ
// per endpoint. Exhaustion yields 429 independent of business logic.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	limiter := &rateLimiter{
		rate:    float64(perMinute) / 60.0,
		burst:   perMinute,
		buckets: make(map[string]*clientBucket),
	}
	return limiter.middleware
}

type rateLimiter struct {
	rate  float64
	burst int

	mu      sync.Mutex
	buckets map[string]*clientBucket
}

type clientBucket struct {
	bucket   *tokenBucket
	lastSeen time.Time
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *rateLimiter) allow(key string) bool {
	if key == "" {
		key = "unknown"
	}
	rl.mu.Lock()
	entry, ok := rl.buckets[key]
	if !ok {
		entry = &clientBucket{bucket: newTokenBucket(rl.rate, rl.burst)}
		rl.buckets[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.cleanupLocked()
	rl.mu.Unlock()

	return entry.bucket.Allow()
}

func (rl *rateLimiter) cleanupLocked() {
	if len(rl.buckets) == 0 {
		return
	}
	cutoff := time.Now().Add(-10 * time.Minute)
	for key, entry := range rl.buckets {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr when the
// request came through a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type tokenBucket struct {
	mu        sync.Mutex
	rate      float64
	capacity  float64
	tokens    float64
	lastCheck time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	now := time.Now()
	return &tokenBucket{
		rate:      rate,
		capacity:  float64(burst),
		tokens:    float64(burst),
		lastCheck: now,
	}
}

func (tb *tokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := time.Now()
	elapsed := now.Sub(tb.lastCheck).Seconds()
	tb.lastCheck = now
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	if tb.tokens < 1 {
		return false
	}
	tb.tokens -= 1
	return true
}
