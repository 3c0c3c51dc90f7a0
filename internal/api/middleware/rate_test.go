package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func newLimitedRouter(cfg RateLimitConfig) (*gin.Engine, *RateLimiter) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(cfg)

	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, limiter
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	router, limiter := newLimitedRouter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	defer limiter.Close()

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		router.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("Expected first two requests within burst, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("Expected third request rejected, got %d", statuses[2])
	}
}

func TestRateLimitTracksClientsSeparately(t *testing.T) {
	router, limiter := newLimitedRouter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	defer limiter.Close()

	for _, addr := range []string{"198.51.100.1:1000", "198.51.100.2:1000"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Expected fresh bucket for %s, got %d", addr, w.Code)
		}
	}
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(DefaultRateLimitConfig())
	defer limiter.Close()

	limiter.mu.Lock()
	limiter.clients["stale"] = &client{
		limiter:  rate.NewLimiter(1, 1),
		lastSeen: time.Now().Add(-staleAfter - time.Minute),
	}
	limiter.clients["fresh"] = &client{
		limiter:  rate.NewLimiter(1, 1),
		lastSeen: time.Now(),
	}
	limiter.mu.Unlock()

	limiter.evict(time.Now())

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if _, ok := limiter.clients["stale"]; ok {
		t.Error("Expected idle client evicted")
	}
	if _, ok := limiter.clients["fresh"]; !ok {
		t.Error("Expected recent client retained")
	}
}

func TestRateLimiterCloseStopsSweeper(t *testing.T) {
	limiter := NewRateLimiter(DefaultRateLimitConfig())

	limiter.Close()
	// Idempotent
	limiter.Close()

	select {
	case <-limiter.done:
	default:
		t.Error("Expected sweeper goroutine to exit after Close")
	}
}
