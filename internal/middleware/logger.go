package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"telemed-server/pkg/logging"
)

// RequestLogger tags each request with an X-Request-ID and logs it once done.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Set("requestID", rid)
		c.Header("X-Request-ID", rid)

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"request_id", rid,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_ip", c.ClientIP(),
		}
		if userID, ok := GetUserIDFromContext(c); ok {
			args = append(args, "user_id", userID)
		}
		switch {
		case status >= 500:
			logger.Error("request", args...)
		case status >= 400:
			logger.Warn("request", args...)
		default:
			logger.Info("request", args...)
		}
	}
}
