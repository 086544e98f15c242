package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/songifi/lyricsflip-matchmaker/pkg/ratelimit"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limit configuration
type RateLimitConfig struct {
	Limiter ratelimit.Limiter
	KeyFunc func(*gin.Context) string // Function to extract rate limit key
	Logger  *zap.Logger
}

// IPKeyFunc uses only IP address
func IPKeyFunc(c *gin.Context) string {
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// RateLimit 토큰 버킷 기반 요청 제한. 저장소 오류 시에는 요청을 허용한다 (fail-open).
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = IPKeyFunc
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		decision, err := config.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			config.Logger.Warn("Rate limit check failed, allowing request",
				zap.String("key", key),
				zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
