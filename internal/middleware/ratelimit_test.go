package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	handler := RateLimiter(ctx, RateLimitConfig{RequestsPerSecond: 1, Burst: 2})(okHandler())

	for range 2 {
		rec := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	handler := RateLimiter(ctx, RateLimitConfig{RequestsPerSecond: 1, Burst: 1})(okHandler())

	reqA := httptest.NewRequest(http.MethodGet, "/", nil)
	reqA.RemoteAddr = "10.0.0.1:1234"
	require.Equal(t, http.StatusOK, serve(handler, reqA).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, reqA).Code)

	reqB := httptest.NewRequest(http.MethodGet, "/", nil)
	reqB.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, serve(handler, reqB).Code)

	// Same IP, but an authenticated operator gets its own bucket.
	reqOp := httptest.NewRequest(http.MethodGet, "/", nil)
	reqOp.RemoteAddr = "10.0.0.1:1234"
	reqOp = reqOp.WithContext(WithOperator(reqOp.Context(), "ops"))
	assert.Equal(t, http.StatusOK, serve(handler, reqOp).Code)
}

func TestLimiterSet_Sweep(t *testing.T) {
	set := &limiterSet{cfg: RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute}, clients: map[string]*clientBucket{}}
	now := time.Now()
	set.get("old", now.Add(-2*time.Minute))
	set.get("fresh", now)

	set.sweep(now)
	assert.NotContains(t, set.clients, "old")
	assert.Contains(t, set.clients, "fresh")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.168.1.1:12345", "192.168.1.1"},
		{"[::1]:12345", "::1"},
		{"no-port", "no-port"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		req.Header.Set("X-Forwarded-For", "203.0.113.50")
		assert.Equal(t, tt.want, clientIP(req), tt.remoteAddr)
	}
}
