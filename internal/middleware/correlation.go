// Package middleware holds gin middleware shared by every HTTP route
// signalcore serves, including the WebSocket upgrade route handled by
// internal/transport.
package middleware

import (
	"github.com/fathomrtc/signalcore/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderXCorrelationID is the header key for the correlation ID.
const HeaderXCorrelationID = "X-Correlation-ID"

// CorrelationID takes the request's X-Correlation-ID header, or a fresh
// UUID when it is absent, echoes it on the response, and stores it in the
// gin context under the string form of logging.CorrelationIDKey. It runs on
// every route, including the WebSocket upgrade route. The ID is not placed
// in the request's context.Context, so the internal/logging helpers, which
// read that context, do not add it to log lines.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderXCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		// Set in header for response
		c.Header(HeaderXCorrelationID, correlationID)

		// Set in context for logger
		c.Set(string(logging.CorrelationIDKey), correlationID)

		// Pass to next handlers
		c.Next()
	}
}
