package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS allows the app origin to call the JSON endpoints from the browser.
// An empty appURL allows any origin.
func CORS(appURL string) gin.HandlerFunc {
	allowed := ""
	if u, err := url.Parse(appURL); err == nil && u.Scheme != "" && u.Host != "" {
		allowed = u.Scheme + "://" + u.Host
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowed == "":
			c.Header("Access-Control-Allow-Origin", "*")
		case strings.EqualFold(origin, allowed):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, apikey, x-client-info")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
