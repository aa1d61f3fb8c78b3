package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/bsrmarket/marketplace/internal/metrics"
	"github.com/bsrmarket/marketplace/internal/storage"
)

// requestID tags every request with a correlation id, echoed back in the
// X-Request-ID header and attached to log entries via the context.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// rateLimiter enforces a per-client sliding window backed by the
// rate_limits table. The window is pruned on each check so the table
// stays bounded.
func rateLimiter(db *storage.Database, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.ClientIP()
		cutoff := time.Now().Add(-window)

		db.DB.Where("created_at < ?", cutoff).Delete(&storage.RateLimit{})

		var count int64
		if err := db.DB.Model(&storage.RateLimit{}).
			Where("identifier = ? AND created_at > ?", identifier, cutoff).
			Count(&count).Error; err != nil {
			log.WithField("error", err.Error()).Error("Rate limit check failed")
			c.Next()
			return
		}

		if count >= int64(maxRequests) {
			metrics.RateLimited.Inc()
			fail(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		db.DB.Create(&storage.RateLimit{Identifier: identifier})
		c.Next()
	}
}
