package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// visitor tracks request timestamps for one client IP.
type visitor struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// RateLimiter is a sliding-window per-IP limiter.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	cleanup  time.Duration
}

// NewRateLimiter creates a limiter allowing rate requests per window
// per client IP. Stale visitor entries are dropped after cleanup.
func NewRateLimiter(rate int, window, cleanup time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		cleanup:  cleanup,
	}
}

// Allow reports whether a request from ip is within the limit, and
// records it if so.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	// Drop timestamps outside the window.
	cutoff := now.Add(-rl.window)
	kept := v.timestamps[:0]
	for _, ts := range v.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	v.timestamps = kept

	if len(v.timestamps) >= rl.rate {
		return false
	}
	v.timestamps = append(v.timestamps, now)

	// Opportunistic cleanup of idle visitors.
	for k, other := range rl.visitors {
		if now.Sub(other.lastSeen) > rl.cleanup {
			delete(rl.visitors, k)
		}
	}
	return true
}

// RateLimitConfig groups the limiters applied per route class. Login
// and registration get the tightest limiter since they are the brute
// force targets.
type RateLimitConfig struct {
	AuthLimiter   *RateLimiter
	APILimiter    *RateLimiter
	GlobalLimiter *RateLimiter
}

// NewDefaultRateLimitConfig returns production limits.
func NewDefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		AuthLimiter:   NewRateLimiter(10, time.Minute, 3*time.Minute),
		APILimiter:    NewRateLimiter(120, time.Minute, 3*time.Minute),
		GlobalLimiter: NewRateLimiter(300, time.Minute, 3*time.Minute),
	}
}

func isAuthPath(path string) bool {
	return path == "/api/register" || path == "/api/login" || path == "/login" ||
		strings.HasPrefix(path, "/auth/")
}

// RateLimitMiddleware limits requests per client IP, choosing a
// limiter by route class.
func RateLimitMiddleware(config *RateLimitConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = NewDefaultRateLimitConfig()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := config.GlobalLimiter
			switch {
			case isAuthPath(r.URL.Path):
				limiter = config.AuthLimiter
			case strings.HasPrefix(r.URL.Path, "/api/"):
				limiter = config.APILimiter
			}

			ip := GetClientIP(r)
			if !limiter.Allow(ip) {
				log.Warn().
					Str("ip", ip).
					Str("path", r.URL.Path).
					Msg("rate limit exceeded")
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
