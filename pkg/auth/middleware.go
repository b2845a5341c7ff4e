package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

const CallerKey = "caller"

// Authenticate requires a bearer token and stores the caller in the context.
func Authenticate(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		caller, err := issuer.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}

func CallerFrom(c *gin.Context) (models.Caller, bool) {
	value, exists := c.Get(CallerKey)
	if !exists {
		return models.Caller{}, false
	}
	caller, ok := value.(models.Caller)
	return caller, ok
}

func RoleMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Caller not found in context"})
			return
		}

		for _, allowedRole := range allowedRoles {
			if caller.Role == allowedRole {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

func RequireStaff() gin.HandlerFunc {
	return RoleMiddleware(models.RoleAdmin, models.RoleStaff)
}
