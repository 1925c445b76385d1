package audio

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// RateLimiter allows a fixed number of requests per client IP in each window.
// The window starts with the first request from that IP.
type RateLimiter struct {
	counts *cache.Cache
	rate   int
	window time.Duration
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counts: cache.New(window, 2*window),
		rate:   rate,
		window: window,
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	if err := rl.counts.Add(ip, 1, rl.window); err == nil {
		return true
	}
	n, err := rl.counts.IncrementInt(ip, 1)
	if err != nil {
		// expired between Add and IncrementInt
		rl.counts.Set(ip, 1, rl.window)
		return true
	}
	return n <= rl.rate
}

func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
