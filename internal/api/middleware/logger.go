package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/repobrief/internal/logger"
)

// RequestIDHeader carries the request id back to the client.
const RequestIDHeader = "X-Request-ID"

// Logger returns a Gin middleware that injects a request-scoped logger into the
// request context and logs the start and end of every request.
// Parameters:
//   - log: base logger; nil uses the process default.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func Logger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetDefault()
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := log.WithContext(c.Request.Context())
		ctx = logger.WithFields(ctx, logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldComponent: "api",
		})
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		logger.CtxDebug(ctx, "Request started: method=%s, path=%s, client_ip=%s",
			c.Request.Method, path, c.ClientIP())

		c.Next()

		logger.With(logger.Fields{logger.FieldStatus: c.Writer.Status()}).
			WithDuration(start).
			Info(ctx, "Request completed: method=%s, path=%s", c.Request.Method, path)
	}
}
