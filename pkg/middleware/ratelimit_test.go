package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientLimiter(t *testing.T) {
	l := NewClientLimiter(1, 2, time.Minute)
	now := time.Now()

	assert.True(t, l.allowAt("a", now))
	assert.True(t, l.allowAt("a", now))
	assert.False(t, l.allowAt("a", now))
	assert.True(t, l.allowAt("b", now), "clients have separate buckets")
	assert.True(t, l.allowAt("a", now.Add(time.Second)))

	assert.Zero(t, l.Sweep(now.Add(30*time.Second)))
	assert.Equal(t, 2, l.Sweep(now.Add(2*time.Minute)))
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(NewClientLimiter(0.001, 1, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serve := func(path, ip string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve("/api/v1/search", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, serve("/api/v1/search", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, serve("/health/ready", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, serve("/api/v1/search", "10.0.0.2"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}

func TestCORS(t *testing.T) {
	h := CORS(NewCORSConfig("https://beer.example"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://beer.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://beer.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://other.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
