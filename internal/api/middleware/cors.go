package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
}

// CORS answers preflight requests and sets the Access-Control headers for allowed origins.
func CORS(config CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		switch {
		case config.AllowAllOrigins:
			c.Header("Access-Control-Allow-Origin", "*")
		case IsOriginAllowed(origin, config):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		default:
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Caller-ID, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// IsOriginAllowed reports whether origin is in the configured list.
func IsOriginAllowed(origin string, config CORSConfig) bool {
	if config.AllowAllOrigins {
		return true
	}
	for _, allowed := range config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
