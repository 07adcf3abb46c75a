package webhook

import (
	"crypto/subtle"
	"net/http"

	"agenda_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "apikey"

// APIKeyAuthMiddleware checks the apikey header against the configured
// webhook key. An empty key disables the check.
func APIKeyAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}

		got := c.GetHeader(apiKeyHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			c.Abort()
			httpkit.Error(c, http.StatusUnauthorized, "invalid API key", nil)
			return
		}
		c.Next()
	}
}
