package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/occuhealth/ehr-platform/internal/api/respond"
)

// Sweep cadence for the per-client bucket map. Clients idle longer than
// staleAfter are evicted so the map cannot grow without bound.
const (
	defaultSweepEvery = 5 * time.Minute
	staleAfter        = 10 * time.Minute
)

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	mu    sync.Mutex
	seen  map[string]*tokenBucket
	rate  float64
	burst int
}

type tokenBucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter allows rate requests/sec per client with the given burst,
// sweeping idle clients on the default cadence.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return NewRateLimiterWithSweep(rate, burst, defaultSweepEvery)
}

// NewRateLimiterWithSweep is NewRateLimiter with a configurable sweep
// interval, for tests and unusual deployments.
func NewRateLimiterWithSweep(rate float64, burst int, every time.Duration) *RateLimiter {
	rl := &RateLimiter{
		seen:  make(map[string]*tokenBucket),
		rate:  rate,
		burst: burst,
	}
	go rl.sweep(every)
	return rl
}

// Allow takes one token from ip's bucket and reports whether one was
// available.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.seen[ip]
	if !ok {
		b = &tokenBucket{tokens: float64(rl.burst), last: now}
		rl.seen[ip] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-staleAfter)
		for ip, b := range rl.seen {
			if b.last.Before(cutoff) {
				delete(rl.seen, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects clients over the configured rate with 429 in the same
// error envelope the rest of the API uses.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				respond.Error(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the address resolved by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
