package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomrtc/signalcore/internal/config"
)

func newTestLimiter(t *testing.T, rate string) *RateLimiter {
	rl, err := NewRateLimiter(&config.Config{RateLimitWsIp: rate})
	require.NoError(t, err)
	return rl
}

func TestNewRateLimiter_UsesMemoryStore(t *testing.T) {
	rl := newTestLimiter(t, "10-M")
	assert.NotNil(t, rl)
}

func TestNewRateLimiter_RejectsMalformedRate(t *testing.T) {
	_, err := NewRateLimiter(&config.Config{RateLimitWsIp: "not-a-rate"})
	assert.Error(t, err)
}

func TestMiddleware_AllowsWithinLimit(t *testing.T) {
	rl := newTestLimiter(t, "5-M")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		req, _ := http.NewRequest("GET", "/ws", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "5", resp.Header().Get("X-RateLimit-Limit"))
	}
}

func TestMiddleware_RejectsOverLimit(t *testing.T) {
	rl := newTestLimiter(t, "2-M")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest("GET", "/ws", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	}

	req, _ := http.NewRequest("GET", "/ws", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestAllow_SeparatesLimitsByIP(t *testing.T) {
	rl := newTestLimiter(t, "1-M")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })

	req1, _ := http.NewRequest("GET", "/ws", nil)
	req1.RemoteAddr = "10.0.0.1:1234"
	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, req1)
	assert.Equal(t, http.StatusOK, resp1.Code)

	req2, _ := http.NewRequest("GET", "/ws", nil)
	req2.RemoteAddr = "10.0.0.2:1234"
	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, req2)
	assert.Equal(t, http.StatusOK, resp2.Code, "a different client IP must not share the first IP's budget")
}
