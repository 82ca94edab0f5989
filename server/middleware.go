package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultRateLimit  = 10
	defaultRateWindow = time.Minute
)

// adminCreds guards the OAuth start route. With nothing configured every
// request passes.
type adminCreds struct {
	username, password, token string
}

func (o Options) adminCreds() adminCreds {
	c := adminCreds{username: o.AdminUsername, password: o.AdminPassword, token: o.AdminToken}
	if !c.enabled() && o.OAuth != nil {
		slog.Warn("admin authentication not configured, /auth/twitch/start is unprotected; set ADMIN_USERNAME+ADMIN_PASSWORD or ADMIN_TOKEN", slog.String("component", "http"))
	}
	return c
}

func (c adminCreds) enabled() bool {
	return (c.username != "" && c.password != "") || c.token != ""
}

func equal(a, b string) bool { return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1 }

// allows accepts the X-Admin-Token header first, then Basic Auth.
func (c adminCreds) allows(r *http.Request) bool {
	if !c.enabled() {
		return true
	}
	if tok := r.Header.Get("X-Admin-Token"); c.token != "" && tok != "" && equal(tok, c.token) {
		return true
	}
	if c.username == "" || c.password == "" {
		return false
	}
	user, pass, ok := r.BasicAuth()
	// Evaluate both comparisons to keep timing independent of which one fails.
	userOK, passOK := equal(user, c.username), equal(pass, c.password)
	return ok && userOK && passOK
}

func adminAuth(next http.Handler, creds adminCreds) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if creds.allows(r) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="arcane admin"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		slog.Warn("admin auth failed", slog.String("path", r.URL.Path), slog.String("remote_addr", r.RemoteAddr))
	})
}

type rateLimiterConfig struct {
	enabled bool
	limit   int
	window  time.Duration
}

// limiterConfig maps Options onto limiter settings. A negative RateLimit
// disables limiting; zero values fall back to defaults.
func (o Options) limiterConfig() rateLimiterConfig {
	cfg := rateLimiterConfig{enabled: o.RateLimit >= 0, limit: o.RateLimit, window: o.RateWindow}
	if cfg.limit <= 0 {
		cfg.limit = defaultRateLimit
	}
	if cfg.window <= 0 {
		cfg.window = defaultRateWindow
	}
	return cfg
}

// ipRateLimiter keeps a sliding window of request times per client IP.
type ipRateLimiter struct {
	cfg rateLimiterConfig
	now func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

func newIPRateLimiter(ctx context.Context, cfg rateLimiterConfig) *ipRateLimiter {
	rl := &ipRateLimiter{cfg: cfg, now: time.Now, hits: map[string][]time.Time{}}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
	return rl
}

// cleanup forgets IPs with no request inside the current window.
func (rl *ipRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.cfg.window)
	for ip, times := range rl.hits {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(rl.hits, ip)
		}
	}
}

func (rl *ipRateLimiter) allow(ip string) bool {
	if !rl.cfg.enabled {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.cfg.window)
	times := rl.hits[ip]
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	times = times[i:]
	if len(times) >= rl.cfg.limit {
		rl.hits[ip] = times
		return false
	}
	rl.hits[ip] = append(times, now)
	return true
}

func rateLimitMiddleware(next http.Handler, limiter *ipRateLimiter) http.Handler {
	retryAfter := strconv.Itoa(int(limiter.cfg.window / time.Second))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !limiter.allow(ip) {
			w.Header().Set("Retry-After", retryAfter)
			http.Error(w, "Too Many Requests - rate limit exceeded", http.StatusTooManyRequests)
			slog.Warn("rate limit exceeded", slog.String("ip", ip), slog.String("path", r.URL.Path))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, else the remote address without port.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
