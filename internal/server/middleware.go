package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reelpress/internal/logging"
	"reelpress/internal/services"
)

const headerRequestID = "X-Request-ID"

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		logger := logging.WithContext(c.Request.Context(), s.logger)
		logger.Info("request handled",
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger := logging.WithContext(c.Request.Context(), s.logger)
		logger.Error("handler panicked",
			logging.Any("panic", recovered),
			logging.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, "internal", "Internal server error")
		c.Abort()
	})
}

// requireAPIKey gates business routes on the configured x-api-key secret.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := s.cfg.API.Key
		if key == "" || c.GetHeader("x-api-key") != key {
			respondError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid x-api-key header")
			c.Abort()
			return
		}
		c.Next()
	}
}
