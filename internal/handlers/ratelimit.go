package handlers

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-client request rate, keyed by remote IP.
// Run chi's middleware.RealIP ahead of it when behind a proxy.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      int
	burst    int
	log      logrus.FieldLogger
}

func NewRateLimiter(rps, burst int, log logrus.FieldLogger) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rps:      rps,
		burst:    burst,
		log:      log,
	}
}

func (l *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.limiters[key]; ok {
		c.lastSeen = now
		return c.lim
	}
	if key == "" {
		l.log.Warn("rate limiter key is empty")
	}
	c := &clientLimiter{
		lim:      rate.NewLimiter(rate.Every(time.Second/time.Duration(l.rps)), l.burst),
		lastSeen: now,
	}
	l.limiters[key] = c
	return c.lim
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !l.limiter(key, time.Now()).Allow() {
			l.log.WithField("client", key).WithField("path", r.URL.Path).Debug("rate limited")
			if isHTMX(r) {
				w.Header().Set("HX-Trigger", "rate-limit-exceeded")
			}
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many requests. Please slow down."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Prune forgets clients not seen for longer than maxIdle.
func (l *RateLimiter) Prune(maxIdle time.Duration, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, c := range l.limiters {
		if now.Sub(c.lastSeen) > maxIdle {
			delete(l.limiters, key)
			n++
		}
	}
	return n
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
