package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger prints one access-log line per request, tagged with the request_id
// and the caller's role so dispatch actions can be traced to a user.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		role := GetRequestContext(c).Role
		if role == "" {
			role = "-"
		}

		log.Printf("[HTTP] request_id=%s role=%s method=%s path=%s status=%d latency_ms=%.3f ip=%s",
			GetRequestID(c),
			role,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			float64(latency.Microseconds())/1000.0,
			c.ClientIP(),
		)
	}
}
