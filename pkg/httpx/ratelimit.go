package httpx

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters for one profile.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Profiles for different endpoint classes.
var (
	// StrictLimit for credential-bearing endpoints (brute force prevention).
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit for the remaining flow-advancing endpoints.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit for read-mostly endpoints.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}
)

// clientIP extracts the caller address, honouring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterPool struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	cfg     RateLimitConfig
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if e, ok := p.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	// Opportunistic eviction of idle entries keeps the map bounded without a
	// background goroutine.
	for k, e := range p.entries {
		if now.Sub(e.lastSeen) > 10*p.cfg.Window {
			delete(p.entries, k)
		}
	}

	limit := rate.Every(p.cfg.Window / time.Duration(p.cfg.RequestsPerWindow))
	e := &limiterEntry{limiter: rate.NewLimiter(limit, p.cfg.Burst), lastSeen: now}
	p.entries[key] = e
	return e.limiter
}

// RateLimitByIP limits requests per client IP using the given profile.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	pool := &limiterPool{entries: make(map[string]*limiterEntry), cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !pool.get(clientIP(r)).Allow() {
				w.Header().Set("Retry-After", cfg.Window.String())
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
