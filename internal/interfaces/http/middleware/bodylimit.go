package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/orderflow/backend/internal/infrastructure/logger"
	"github.com/orderflow/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// BodyLimit caps request bodies at maxBytes. Proof images arrive inside
// transition requests, so the limit must cover the largest proof plus its
// form or JSON envelope.
func BodyLimit(maxBytes int64, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	tooLarge := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", c.GetString(logger.RequestIDKey)))
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if declared := c.Request.ContentLength; declared > maxBytes {
			log.Warn("request body rejected",
				zap.String("path", c.FullPath()),
				zap.Int64("content_length", declared),
				zap.Int64("limit", maxBytes),
			)
			tooLarge(c)
			return
		}
		// chunked bodies have no Content-Length; the reader fails past the limit
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
