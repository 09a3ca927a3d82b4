package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newLimitedRouter(t *testing.T, cfg RateLimiterConfig) (*gin.Engine, *RateLimiter) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)

	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, rl
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	r, _ := newLimitedRouter(t, RateLimiterConfig{Rate: rate.Limit(0.1), Burst: 2})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSweepDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Limit(1), Burst: 1})
	defer rl.Stop()

	rl.limiterFor("10.0.0.1")
	rl.limiterFor("10.0.0.2")

	rl.mu.Lock()
	rl.clients["10.0.0.1"].lastSeen = time.Now().Add(-2 * time.Hour)
	rl.mu.Unlock()

	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "10.0.0.1")
	assert.Contains(t, rl.clients, "10.0.0.2")
}

func TestStopEndsCleanupLoop(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Limit(1), Burst: 1})
	rl.Stop()

	// The limiter keeps serving after the background sweep is gone.
	assert.True(t, rl.limiterFor("10.0.0.3").Allow())
}
