package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wikimedia/labs-tools-shorturls/internal/logger"
)

// LoggerMiddleware logs HTTP requests.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Info("HTTP request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Int64("duration_ms", time.Since(start).Milliseconds()),
			logger.String("client_ip", c.ClientIP()),
		)
	}
}

// RecoveryMiddleware handles panics.
func RecoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("Panic recovered",
					logger.Any("error", err),
					logger.String("path", c.Request.URL.Path),
					logger.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()

		c.Next()
	}
}
