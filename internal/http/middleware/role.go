package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireDispatcher rejects callers without dispatch capability.
func RequireDispatcher() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := GetRequestContext(c)
		if !rc.CanDispatch() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// RequireDriver rejects callers without a linked driver profile.
func RequireDriver() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := GetRequestContext(c)
		if !rc.IsDriver() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "driver account required"})
			return
		}
		c.Next()
	}
}
