package middleware

import (
	"net/http"
	"sync"
	"time"
)

type bucket struct {
	count    int
	lastSeen time.Time
}

// RateLimiter counts requests per client IP over a fixed window. It fronts
// the auth endpoints only, so an in-memory map is enough; limits reset if
// the process restarts.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
	}

	// Drop buckets that have gone a full window without a request.
	go func() {
		for {
			time.Sleep(window)
			rl.mu.Lock()
			for ip, b := range rl.buckets {
				if time.Since(b.lastSeen) > window {
					delete(rl.buckets, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

// allow records a hit for ip and reports whether it is still under the limit.
func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok || time.Since(b.lastSeen) > rl.window {
		rl.buckets[ip] = &bucket{count: 1, lastSeen: time.Now()}
		return true
	}

	b.count++
	b.lastSeen = time.Now()
	return b.count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
