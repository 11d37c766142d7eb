package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/parking/logger"
	"github.com/sirupsen/logrus"
)

// GinLogger logs one structured line per request.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if sub := c.GetString("sub"); sub != "" {
			fields["user"] = sub
		}

		entry := logger.InfoLogger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.ErrorLogger.WithFields(fields).Error(c.Errors.String())
		case status >= 400:
			logger.WarnLogger.WithFields(fields).Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
