package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_BurstPerAddress(t *testing.T) {
	l := NewIPRateLimiter(1, 2)
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	// other addresses have their own bucket
	assert.True(t, l.Allow("10.0.0.2"))

	fixed = fixed.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestIPRateLimiter_PrunesIdleEntries(t *testing.T) {
	l := NewIPRateLimiter(10, 10)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i <= cleanupThreshold; i++ {
		l.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	assert.Equal(t, cleanupThreshold+1, l.Len())

	now = now.Add(maxIdleAge + time.Minute)
	l.Allow("192.168.0.1")
	assert.Equal(t, 1, l.Len())
}

func TestRateLimit_Middleware(t *testing.T) {
	l := NewIPRateLimiter(0.001, 1)
	h := RateLimit(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", nil)
		req.RemoteAddr = "203.0.113.9:5123"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusNoContent, call().Code)
	rr := call()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "RATE_LIMITED")
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	h := RateLimit(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for range 5 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	}
}
