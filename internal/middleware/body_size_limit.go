package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BodySizeLimitMiddleware limits the size of request bodies.
// Paths under a key of overrides get that limit instead of maxBodySize.
func BodySizeLimitMiddleware(maxBodySize int64, overrides map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip for GET, HEAD, OPTIONS requests (no body)
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		limit := maxBodySize
		for prefix, override := range overrides {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				limit = override
				break
			}
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		c.Next()
	}
}
