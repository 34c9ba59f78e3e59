package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/omaguva-store/payments-service/internal/logging"
)

var accessLogger = logging.New("http")

// RequestID assigns each request an id, honoring one supplied by the
// caller, and puts it on the request context for downstream clients and
// event correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(logging.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(c.Request.Context(), logging.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(logging.HeaderRequestID, requestID)

		c.Next()
	}
}

// RequestLogger logs one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logging.Fields{
			"method":   c.Request.Method,
			"path":     path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if requestID := c.Request.Context().Value(logging.RequestIDKey); requestID != nil {
			fields["request_id"] = requestID
		}

		if c.Writer.Status() >= 500 {
			accessLogger.Error("Request failed", fields)
		} else {
			accessLogger.Info("Request handled", fields)
		}
	}
}
