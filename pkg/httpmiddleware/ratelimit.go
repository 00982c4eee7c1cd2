package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures a sliding window limiter.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// KeyFunc buckets requests; ClientIP when nil.
	KeyFunc func(*http.Request) string
}

type window struct {
	start time.Time
	prev  float64
	curr  float64
}

// Limiter is a per-key sliding window counter. The previous window's count
// is weighted by how much of it still overlaps the sliding window.
type Limiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter creates a Limiter. Stale keys are evicted every two windows
// until ctx is done.
func NewLimiter(ctx context.Context, cfg RateLimitConfig) *Limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	l := &Limiter{cfg: cfg, windows: make(map[string]*window)}
	if ctx != nil {
		go l.evictLoop(ctx)
	}
	return l
}

// Allow counts one hit for key at now. It reports whether the hit is within
// the limit, how many hits remain and when the current window ends.
func (l *Limiter) Allow(key string, now time.Time) (allowed bool, remaining int, reset time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &window{start: now.Truncate(l.cfg.Window)}
		l.windows[key] = w
	}
	if elapsed := now.Sub(w.start); elapsed >= l.cfg.Window {
		w.prev = w.curr
		if elapsed >= 2*l.cfg.Window {
			w.prev = 0
		}
		w.curr = 0
		w.start = now.Truncate(l.cfg.Window)
	}

	overlap := 1 - float64(now.Sub(w.start))/float64(l.cfg.Window)
	count := w.prev*math.Max(overlap, 0) + w.curr
	reset = w.start.Add(l.cfg.Window)
	if count >= float64(l.cfg.Max) {
		return false, 0, reset
	}
	w.curr++
	return true, max(int(float64(l.cfg.Max)-count-1), 0), reset
}

func (l *Limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, w := range l.windows {
		if now.Sub(w.start) >= 2*l.cfg.Window {
			delete(l.windows, k)
		}
	}
}

func (l *Limiter) evictLoop(ctx context.Context) {
	t := time.NewTicker(2 * l.cfg.Window)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.evict(now)
		}
	}
}

// Middleware rejects requests over the limit with 429 and sets the
// X-RateLimit-* headers on every response.
func (l *Limiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, reset := l.Allow(l.cfg.KeyFunc(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				retry := max(time.Until(reset), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit is NewLimiter(ctx, cfg).Middleware().
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	return NewLimiter(ctx, cfg).Middleware()
}

// ClientIP keys requests by the first X-Forwarded-For hop, then X-Real-IP,
// then the remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
