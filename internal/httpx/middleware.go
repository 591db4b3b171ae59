package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/identity"
	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote":      r.RemoteAddr,
			}).Info("request")
		})
	}
}

func cors(allowed []string) func(http.Handler) http.Handler {
	allowAll := false
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || set[origin]) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
				h.Set("Access-Control-Max-Age", "3600")
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TokenResolver turns a bearer token into the caller's identity.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (identity.Identity, error)
}

// RequireUser rejects requests without a valid bearer token and stores the
// resolved identity on the request context.
func RequireUser(res TokenResolver, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := identity.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, http.StatusUnauthorized, "access denied")
				return
			}
			id, err := res.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, market.ErrUnauthenticated) {
					writeError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				log.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("resolve token")
				writeError(w, http.StatusServiceUnavailable, "identity provider unavailable")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

// RateLimiter is a token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rate     rate.Limit
	burst    int
	log      logrus.FieldLogger
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perSecond float64, burst int, log logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.limiters[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = v
	}
	v.lastSeen = time.Now()
	return v.lim
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.limiter(key).Allow() {
			rl.log.WithFields(logrus.Fields{"ip": key, "path": r.URL.Path}).Warn("rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Sweep forgets clients idle for longer than maxIdle.
func (rl *RateLimiter) Sweep(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	n := 0
	for k, v := range rl.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(rl.limiters, k)
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep every interval until ctx is done.
func (rl *RateLimiter) StartSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				rl.Sweep(maxIdle)
			}
		}
	}()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
