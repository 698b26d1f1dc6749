// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
	"github.com/xcybeamer/storefront-backend/internal/pkg/auth"
)

// Context keys set by the auth middleware
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
	ContextAuthToken = "auth_token"
)

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithCode(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "Authorization header required")
			return
		}

		// Extract token from header
		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			abortWithCode(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			abortWithCode(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "Invalid or expired token")
			return
		}

		setClaims(c, tokenString, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware provides optional authentication
func OptionalAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		tokenString := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			// No usable header, continue as guest
			c.Next()
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			// Invalid token, continue as guest
			c.Next()
			return
		}

		setClaims(c, tokenString, claims)
		c.Next()
	}
}

// RequireRole rejects users below min. Must run after AuthMiddleware.
func RequireRole(min auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRoleFromContext(c)
		if !ok {
			abortWithCode(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "Authentication required")
			return
		}

		if !role.AtLeast(min) {
			abortWithCode(c, http.StatusForbidden, apperror.CodeForbidden, "Insufficient role")
			return
		}

		c.Next()
	}
}

func setClaims(c *gin.Context, token string, claims *auth.Claims) {
	c.Set(ContextUserID, claims.ResolvedUserID())
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextUserRole, claims.Role)
	c.Set(ContextAuthToken, token)
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserID)
	return userID, userID != ""
}

// GetUserEmailFromContext extracts user email from gin context
func GetUserEmailFromContext(c *gin.Context) (string, bool) {
	email := c.GetString(ContextUserEmail)
	return email, email != ""
}

// GetRoleFromContext extracts the user's role from gin context
func GetRoleFromContext(c *gin.Context) (auth.Role, bool) {
	value, exists := c.Get(ContextUserRole)
	if !exists {
		return "", false
	}
	role, ok := value.(auth.Role)
	return role, ok
}

// GetTokenFromContext returns the raw bearer token of an authenticated request
func GetTokenFromContext(c *gin.Context) string {
	return c.GetString(ContextAuthToken)
}

func abortWithCode(c *gin.Context, status int, code apperror.Code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}
