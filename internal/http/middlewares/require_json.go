package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects non-JSON bodies. DELETE is checked only when it
// carries a body, since the admin gate reads its factors from one.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if !isJSON(c) {
				abortUnsupported(c)
				return
			}
		case http.MethodDelete:
			if c.Request.ContentLength != 0 && !isJSON(c) {
				abortUnsupported(c)
				return
			}
		}
		c.Next()
	}
}

func isJSON(c *gin.Context) bool {
	ct := c.GetHeader("Content-Type")
	// allow "application/json; charset=utf-8"
	return ct != "" && strings.HasPrefix(strings.ToLower(ct), "application/json")
}

func abortUnsupported(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
		"error": gin.H{
			"code":    "unsupported_media_type",
			"message": "Content-Type must be application/json",
		},
	})
}
