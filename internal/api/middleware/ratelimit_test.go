package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/signup/internal/api/envelope"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMemoryLimiter(t *testing.T, limit int, window time.Duration) (*MemoryLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	ml := NewMemoryLimiter(limit, window)
	ml.now = clock.Now
	t.Cleanup(ml.Close)
	return ml, clock
}

func TestMemoryLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	ml, _ := newTestMemoryLimiter(t, 3, time.Hour)

	for i := 0; i < 3; i++ {
		d, err := ml.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := ml.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.InDelta(t, (20 * time.Minute).Seconds(), d.RetryAfter.Seconds(), 0.01)
}

func TestMemoryLimiter_Refill(t *testing.T) {
	ctx := context.Background()
	ml, clock := newTestMemoryLimiter(t, 2, time.Minute)

	for i := 0; i < 2; i++ {
		d, _ := ml.Allow(ctx, "k")
		require.True(t, d.Allowed)
	}
	d, _ := ml.Allow(ctx, "k")
	require.False(t, d.Allowed)

	clock.Advance(31 * time.Second)
	d, _ = ml.Allow(ctx, "k")
	assert.True(t, d.Allowed, "one token refills every window/limit")
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	ml, _ := newTestMemoryLimiter(t, 1, time.Hour)

	d, _ := ml.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = ml.Allow(ctx, "a")
	assert.False(t, d.Allowed)

	d, _ = ml.Allow(ctx, "b")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_EvictIdle(t *testing.T) {
	ctx := context.Background()
	ml, clock := newTestMemoryLimiter(t, 1, time.Minute)

	_, _ = ml.Allow(ctx, "a")
	clock.Advance(2 * time.Minute)
	_, _ = ml.Allow(ctx, "b")

	ml.evictIdle()

	ml.mu.Lock()
	defer ml.mu.Unlock()
	assert.NotContains(t, ml.buckets, "a")
	assert.Contains(t, ml.buckets, "b")
}

type scriptedLimiter struct {
	decision Decision
	err      error
	keys     []string
}

func (l *scriptedLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.keys = append(l.keys, key)
	return l.decision, l.err
}

func TestRateLimit_Denied(t *testing.T) {
	limiter := &scriptedLimiter{decision: Decision{Allowed: false, Limit: 5, RetryAfter: 90 * time.Second}}
	h := RateLimit(limiter, "Too many authentication attempts, please try again later", false)(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "90", rec.Header().Get("Retry-After"))
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, []string{"192.0.2.10"}, limiter.keys)

	var body envelope.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Too many authentication attempts, please try again later", body.Message)
}

func TestRateLimit_Allowed(t *testing.T) {
	limiter := &scriptedLimiter{decision: Decision{Allowed: true, Limit: 100, Remaining: 99}}
	h := RateLimit(limiter, "nope", false)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := &scriptedLimiter{err: errors.New("redis: connection refused")}
	h := RateLimit(limiter, "nope", false)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote addr", "192.0.2.1:1234", nil, false, "192.0.2.1"},
		{"no port", "192.0.2.7", nil, false, "192.0.2.7"},
		{"forwarded chain ignored by default", "192.0.2.1:1", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, false, "192.0.2.1"},
		{"real ip ignored by default", "192.0.2.1:1", map[string]string{"X-Real-IP": "203.0.113.9"}, false, "192.0.2.1"},
		{"forwarded chain behind proxy", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, true, "203.0.113.5"},
		{"real ip behind proxy", "10.0.0.1:1", map[string]string{"X-Real-IP": "203.0.113.9"}, true, "203.0.113.9"},
		{"empty forwarded entry behind proxy", "10.0.0.1:1", map[string]string{"X-Forwarded-For": " , 10.0.0.2"}, true, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimit_SpoofedForwardedForSharesBudget(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Hour)
	defer limiter.Close()
	h := RateLimit(limiter, "slow down", false)(okHandler)

	codes := make([]int, 0, 3)
	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "192.0.2.50:4000"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests || codes[2] != http.StatusTooManyRequests {
		t.Errorf("rotating X-Forwarded-For must not reset the budget, got %v", codes)
	}
}
