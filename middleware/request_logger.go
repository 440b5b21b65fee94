package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// LoggerKey holds the request-scoped *zap.Logger in the gin context.
	LoggerKey = "logger"
	// RequestIDHeader is echoed back so chat transports can correlate turns.
	RequestIDHeader = "X-Request-ID"
)

// RequestLogger tags every request with an id and logs its completion.
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		logger := base.With(zap.String("requestId", requestID))
		c.Set(LoggerKey, logger)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", getClientIP(c)),
			zap.Duration("latency", time.Since(start)))
	}
}
