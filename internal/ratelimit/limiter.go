// Package ratelimit implements per-IP rate limiting for WebSocket upgrades.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/fathomrtc/signalcore/internal/config"
	"github.com/fathomrtc/signalcore/internal/logging"
	"github.com/fathomrtc/signalcore/internal/metrics"
)

// RateLimiter enforces a per-IP connection rate on the WebSocket upgrade
// endpoint. The signaling core has no concept of authenticated users, so
// unlike the teacher's API gateway there is a single limiter keyed by
// client IP rather than a user/IP pair.
type RateLimiter struct {
	wsIP *limiter.Limiter
}

// NewRateLimiter creates a RateLimiter backed by an in-memory store. A
// single-process signaling core has no shared state to coordinate across
// instances, so the Redis-backed store the teacher uses for its HTTP API
// has no role here (see DESIGN.md).
func NewRateLimiter(cfg *config.Config) (*RateLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimitWsIp)
	if err != nil {
		return nil, fmt.Errorf("invalid WS IP rate: %w", err)
	}

	store := memory.NewStore()
	logging.Info(context.Background(), "rate limiter using in-memory store")

	return &RateLimiter{wsIP: limiter.New(store, rate)}, nil
}

// Allow checks whether the connecting IP is within its connection rate.
// Returns true if allowed. On store failure it fails open, matching the
// teacher's availability-first stance on rate limiter errors.
func (rl *RateLimiter) Allow(c *gin.Context) bool {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	limiterCtx, err := rl.wsIP.Get(ctx, ip)
	if err != nil {
		logging.Error(ctx, "ws rate limiter store failed")
		return true
	}

	c.Header("X-RateLimit-Limit", strconv.FormatInt(limiterCtx.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(limiterCtx.Remaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(limiterCtx.Reset, 10))

	metrics.RateLimitRequests.WithLabelValues("websocket_connect").Inc()
	if limiterCtx.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect", "ip").Inc()
		return false
	}

	return true
}

// Middleware returns a Gin middleware enforcing the per-IP WebSocket
// connection rate, responding 429 when exceeded.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many connections from this IP",
			})
			return
		}
		c.Next()
	}
}
