package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter    *rate.Limiter
	lastActive time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	perIP   map[string]*ipLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	// OnLimit writes the rejection; nil sends a plain JSON 429. Set before serving.
	OnLimit func(w http.ResponseWriter, r *http.Request)
}

// NewRateLimiter allows perSecond requests per IP with the given burst.
// perSecond <= 0 disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		perIP:   map[string]*ipLimiter{},
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 2 * time.Hour,
		now:     time.Now,
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	if rl.limit <= 0 {
		return true
	}
	now := rl.now()
	rl.mu.Lock()
	l, ok := rl.perIP[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.perIP[ip] = l
	}
	l.lastActive = now
	rl.mu.Unlock()
	return l.limiter.AllowN(now, 1)
}

// Cleanup drops limiters idle longer than the idle TTL.
func (rl *RateLimiter) Cleanup() int {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for ip, l := range rl.perIP {
		if now.Sub(l.lastActive) > rl.idleTTL {
			delete(rl.perIP, ip)
			n++
		}
	}
	return n
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			if rl.OnLimit != nil {
				rl.OnLimit(w, r)
				return
			}
			writeError(w, http.StatusTooManyRequests, "too many requests, please slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
