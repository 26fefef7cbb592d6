package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moni-del/dragon-d/pkg/logger"
)

func limitedRequest(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/discount", nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RPS: 1, Burst: 2}, logger.Discard())
	clock := time.Now()
	l.now = func() time.Time { return clock }
	h := l.Handler(okHandler)

	assert.Equal(t, http.StatusOK, limitedRequest(h, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, limitedRequest(h, "10.0.0.1:1234").Code)

	rr := limitedRequest(h, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	clock = clock.Add(time.Second)
	assert.Equal(t, http.StatusOK, limitedRequest(h, "10.0.0.1:1234").Code)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RPS: 1, Burst: 1}, logger.Discard())
	h := l.Handler(okHandler)

	assert.Equal(t, http.StatusOK, limitedRequest(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, limitedRequest(h, "10.0.0.1:2").Code)
	assert.Equal(t, http.StatusOK, limitedRequest(h, "10.0.0.2:1").Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	h := NewRateLimiter(RateLimitConfig{}, logger.Discard()).Handler(okHandler)
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusOK, limitedRequest(h, "10.0.0.1:1").Code)
	}

	var nilLimiter *RateLimiter
	assert.Equal(t, http.StatusOK, limitedRequest(nilLimiter.Handler(okHandler), "10.0.0.1:1").Code)
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RPS: 5, Burst: 5, IdleTTL: time.Minute}, logger.Discard())
	clock := time.Now()
	l.now = func() time.Time { return clock }

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.size())

	clock = clock.Add(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.size())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{name: "forwarded chain", xff: "not-an-ip, 203.0.113.7, 10.0.0.1", remote: "10.0.0.9:1", want: "203.0.113.7"},
		{name: "real ip", xri: "198.51.100.2", remote: "10.0.0.9:1", want: "198.51.100.2"},
		{name: "remote addr", remote: "192.0.2.1:4567", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.1", want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestSessionOrIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:80"
	assert.Equal(t, "ip:192.0.2.1", SessionOrIP(req))

	ctx := WithClaims(req.Context(), &Claims{UserID: "u1", Role: "shopper", SessionID: "sess-1"})
	assert.Equal(t, "session:sess-1", SessionOrIP(req.WithContext(ctx)))
}
