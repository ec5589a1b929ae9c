package middleware

import (
	"time"

	"anoa.com/sparkvest/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	log := logger.With("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_id", c.GetString(ContextUserID)).
			Msg("request")
	}
}
