package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

// RateLimit implements a fixed one-minute window per client using Redis
func RateLimit(cfg *config.Config, redisClient redis.Cmdable, log logrus.FieldLogger) gin.HandlerFunc {
	limit := cfg.Security.RateLimitPerMinute

	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		// Signed-in users are limited per account, guests per IP
		subject := c.ClientIP()
		if userID := c.GetString(ContextUserID); userID != "" {
			subject = "user:" + userID
		}
		key := fmt.Sprintf("rate_limit:%s", subject)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		count, err := redisClient.Incr(ctx, key).Result()
		if err == nil && count == 1 {
			// First hit opens the window
			err = redisClient.Expire(ctx, key, time.Minute).Err()
		}
		if err != nil {
			// If Redis is down, allow the request
			log.WithError(err).Warn("Rate limiter unavailable")
			c.Next()
			return
		}

		current := int(count)
		remaining := limit - current
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))

		if current > limit {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"code":        apperror.CodeRateLimit,
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}
