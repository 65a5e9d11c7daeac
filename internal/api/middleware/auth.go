// Package middleware provides HTTP middleware for the academy registry API:
// JWT authentication, request logging, and CORS handling.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/takeyourtokenapp/tyt.app/internal/auth"
	"github.com/takeyourtokenapp/tyt.app/internal/config"
	"github.com/takeyourtokenapp/tyt.app/internal/identity"
)

// IdentityKey is the gin context key holding the caller's parsed identity.
const IdentityKey = "caller_identity"

// AuthMiddleware validates JWT tokens and places the caller's 32-byte
// identity in the request context. Write operations rely on it as the
// signed-caller principal.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1], cfg.JWT.Secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		callerID, err := identity.Parse(claims.Identity)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token carries no valid identity"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set(IdentityKey, callerID)

		c.Next()
	}
}

// CallerIdentity returns the authenticated caller's identity from the
// context. The boolean is false on unauthenticated requests.
func CallerIdentity(c *gin.Context) (identity.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}
