package middleware

import (
	"time"

	"github.com/chucklechain/server/internal/logger"
	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs each HTTP request after it completes. The query
// string is included; headers (and so tokens) never are.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		switch {
		case status >= 500:
			logger.Errorf("[%s] %s - %d (%v)", c.Request.Method, path, status, latency)
		case status >= 400:
			logger.Warnf("[%s] %s - %d (%v)", c.Request.Method, path, status, latency)
		default:
			logger.Infof("[%s] %s - %d (%v)", c.Request.Method, path, status, latency)
		}
	}
}
