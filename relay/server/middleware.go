package server

import (
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/ai-counselor/relay"
	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/ZanzyTHEbar/ai-counselor/relay/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const requestIDKey = "request_id"

// requestID accepts a client supplied id or generates one, and echoes it
// back on the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(internal.RequestIDHeader)
		if id == "" {
			id = domain.NewRequestID()
		} else if err := domain.ValidateRequestID(id); err != nil {
			badRequestHeader(c, clientMessage(err))
			return
		}
		c.Set(requestIDKey, id)
		c.Header(internal.RequestIDHeader, id)
		c.Next()
	}
}

// clientMessage strips the sentinel prefix from a validation error.
func clientMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ports.ErrValidationFailed.Error()+": ")
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// accessLog writes one line per request.
func accessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := logger.Info()
		if status >= 500 {
			ev = logger.Error()
		} else if status >= 400 {
			ev = logger.Warn()
		}
		ev.Str("request_id", requestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}

// recovery converts panics into the internal error body.
func recovery(logger zerolog.Logger, statusOK bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().
			Str("request_id", requestIDFrom(c)).
			Interface("panic", recovered).
			Msg("handler panicked")
		internalError(c, statusOK)
	})
}
