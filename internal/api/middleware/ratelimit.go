package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/felixgeelhaar/signup/internal/api/envelope"
)

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryLimiter is a per-key token bucket held in process memory.
// A bucket holds limit tokens and refills at limit per window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	every   rate.Limit
	idle    time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter creates a limiter allowing limit requests per window and
// starts a goroutine that evicts idle buckets. Call Close to stop it.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	ml := &MemoryLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		every:   rate.Every(window / time.Duration(limit)),
		idle:    window,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go ml.cleanupLoop(5 * time.Minute)

	return ml
}

// Allow implements Limiter
func (ml *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	b, ok := ml.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(ml.every, ml.limit)}
		ml.buckets[key] = b
	}
	b.lastSeen = now

	d := Decision{Limit: ml.limit}
	if b.limiter.AllowN(now, 1) {
		d.Allowed = true
		d.Remaining = int(math.Floor(b.limiter.TokensAt(now)))
		return d, nil
	}

	r := b.limiter.ReserveN(now, 1)
	d.RetryAfter = r.DelayFrom(now)
	r.CancelAt(now)
	return d, nil
}

// Close stops the cleanup goroutine
func (ml *MemoryLimiter) Close() {
	ml.once.Do(func() { close(ml.done) })
}

func (ml *MemoryLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ml.done:
			return
		case <-ticker.C:
			ml.evictIdle()
		}
	}
}

// evictIdle drops buckets unused for a full window; they would be full again.
func (ml *MemoryLimiter) evictIdle() {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	cutoff := ml.now().Add(-ml.idle)
	for key, b := range ml.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(ml.buckets, key)
		}
	}
}

// RateLimit rejects requests over the limiter's budget with a 429 envelope.
// Limiter errors let the request through. Proxy headers only pick the key
// when trustProxy is set.
func RateLimit(limiter Limiter, message string, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r, trustProxy)

			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					"error", err,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(d.Remaining, 0)))

			if !d.Allowed {
				slog.Warn("rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)

				retry := int(math.Ceil(d.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				envelope.JSON(w, http.StatusTooManyRequests, envelope.Response{
					Success: false,
					Message: message,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP address from the request. Forwarding
// headers are client controlled and only read when trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
