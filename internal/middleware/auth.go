package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/assistant-health-sync/internal/model"
	"github.com/ridwanfathin/assistant-health-sync/internal/service"
)

// AuthMiddleware creates a middleware that validates the caller's session token
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		// Check if it's a Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'")
			return
		}

		claims, err := authService.ValidateAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abortUnauthorized(c, "Invalid or expired session")
			return
		}

		// Set user information in context for handlers to use
		c.Set("userID", claims.UserID())
		c.Set("userEmail", claims.Email)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
		Error:   "Missing or invalid session",
		Details: details,
	})
}
