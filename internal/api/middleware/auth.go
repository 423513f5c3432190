// Package middleware provides HTTP middleware for the Gin router.
//
// Go Learning Note — Middleware Pattern (Gin):
// In Gin, middleware is any function with the signature `gin.HandlerFunc`, which
// is `func(*gin.Context)`. Middleware functions form a chain: each one runs,
// optionally calls c.Next() to pass control to the next handler, and can call
// c.Abort() to stop the chain.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"uturn/internal/config"
	"uturn/internal/services"
)

// Context keys for storing authenticated caller data.
const (
	UserIDKey   = "user_id"
	UserRoleKey = "user_role"
)

// Authenticate picks the authentication mode from config: the prefix based
// stub when Bypass is on, signed JWTs otherwise.
func Authenticate(cfg config.AuthConfig) gin.HandlerFunc {
	if cfg.Bypass {
		return MockAuth()
	}
	return JWTAuth(cfg.JWTSecret)
}

// MockAuth extracts the caller from the Authorization header.
// Format: "Bearer <user-id>" where user-id starts with "vendor-", "driver-"
// or "admin-".
//
// Go Learning Note — Returning Functions (Closures):
// MockAuth() returns a gin.HandlerFunc. The outer function could accept
// parameters, and the inner closure captures them. JWTAuth below does exactly
// that with the signing secret.
func MockAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := bearerToken(c)
		if !ok {
			return
		}

		var role services.Role
		switch {
		case strings.HasPrefix(userID, "vendor-"):
			role = services.RoleVendor
		case strings.HasPrefix(userID, "driver-"):
			role = services.RoleDriver
		case strings.HasPrefix(userID, "admin-"):
			role = services.RoleAdmin
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id format"})
			c.Abort()
			return
		}

		setCaller(c, userID, role)
		c.Next()
	}
}

// bearerToken returns the token of a "Bearer <token>" header. On failure it
// writes the 401 and aborts the chain.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
		c.Abort()
		return "", false
	}

	// strings.SplitN splits into at most 2 parts, handling tokens with spaces.
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
		c.Abort()
		return "", false
	}
	return parts[1], true
}

func setCaller(c *gin.Context, userID string, role services.Role) {
	c.Set(UserIDKey, userID)
	c.Set(UserRoleKey, role)
}

// RequireRole lets the request through only if the caller has one of roles.
// Must be used after an authentication middleware.
func RequireRole(roles ...services.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(UserRoleKey)
		if exists {
			for _, r := range roles {
				if role == r {
					c.Next()
					return
				}
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		c.Abort()
	}
}

// GetUserID retrieves the caller id set by the authentication middleware.
//
// Go Learning Note — Type Assertion:
// c.Get() returns (interface{}, bool). The .(string) form panics if the value
// is missing or of another type; it is only safe behind the auth middleware.
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(UserIDKey)
	return userID.(string)
}

// GetActor returns the caller as a services.Actor.
func GetActor(c *gin.Context) services.Actor {
	role, _ := c.Get(UserRoleKey)
	return services.Actor{ID: GetUserID(c), Role: role.(services.Role)}
}
