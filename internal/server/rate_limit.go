package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter admits at most limit requests per client inside any sliding window.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	exempt   map[string]bool
	now      func() time.Time
}

// NewRateLimiter creates a limiter. A non-positive limit disables it.
func NewRateLimiter(limit int, window time.Duration, exemptPaths ...string) *RateLimiter {
	exempt := make(map[string]bool, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = true
	}
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		exempt:   exempt,
		now:      time.Now,
	}
}

// rateLimitExceeded is the body of a 429 response.
type rateLimitExceeded struct {
	Error         string `json:"error"`
	Limit         int    `json:"limit"`
	WindowSeconds int    `json:"window_seconds"`
	ResetAt       int64  `json:"reset_at"`
}

// allow records a request from client at now. When the client is over its
// limit it returns false and the time the oldest request leaves the window.
func (l *RateLimiter) allow(client string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := now.Add(-l.window)
	kept := l.requests[client][:0]
	for _, ts := range l.requests[client] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.requests[client] = kept
		return 0, kept[0].Add(l.window), false
	}

	kept = append(kept, now)
	l.requests[client] = kept
	return l.limit - len(kept), now.Add(l.window), true
}

// Sweep drops clients with no request inside the window.
func (l *RateLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.window)
	for client, stamps := range l.requests {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(windowStart) {
			delete(l.requests, client)
		}
	}
}

// Middleware enforces the limit keyed by client address. It must run after
// middleware.RealIP so proxied clients are told apart.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		now := l.now()
		remaining, reset, ok := l.allow(clientKey(r), now)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(reset.Sub(now).Seconds())+1))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(rateLimitExceeded{
				Error:         "Rate limit exceeded",
				Limit:         l.limit,
				WindowSeconds: int(l.window.Seconds()),
				ResetAt:       reset.Unix(),
			})
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
