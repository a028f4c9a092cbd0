package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thevvip/server/internal/shared/cache"
	"github.com/thevvip/server/internal/shared/response"
)

// RateLimitByUser limits authenticated requests per user id.
// Falls back to client IP when the route is unauthenticated.
func RateLimitByUser(limiter cache.RateLimiter, log *zap.Logger) gin.HandlerFunc {
	return rateLimit(limiter, log, func(c *gin.Context) string {
		if id := c.GetString(ContextUserID); id != "" {
			return id
		}
		return c.ClientIP()
	})
}

// RateLimitByIP limits requests per client IP.
func RateLimitByIP(limiter cache.RateLimiter, log *zap.Logger) gin.HandlerFunc {
	return rateLimit(limiter, log, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

func rateLimit(limiter cache.RateLimiter, log *zap.Logger, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// Limiter backend down; let the request through rather than
			// failing the whole API.
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			response.Error(c, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
