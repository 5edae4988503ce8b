package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/trekops/booking-backend/internal/models"
)

// AdminSecretHeader carries the shared admin secret
const AdminSecretHeader = "X-Admin-Secret"

// AdminContextKey is set on the gin context once a request is authenticated
const AdminContextKey = "admin_auth_method"

// AdminVerifier checks admin credentials
type AdminVerifier interface {
	VerifySecret(presented string) bool
	VerifyToken(token string) bool
}

// AdminAuth accepts either the shared secret in X-Admin-Secret or a bearer
// token issued by the admin session endpoint.
func AdminAuth(verifier AdminVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret := c.GetHeader(AdminSecretHeader); secret != "" {
			if verifier.VerifySecret(secret) {
				c.Set(AdminContextKey, "secret")
				c.Next()
				return
			}
			abortUnauthorized(c, "Invalid admin secret")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Admin credentials required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			abortUnauthorized(c, "Authorization header must be in format: Bearer <token>")
			return
		}

		if !verifier.VerifyToken(parts[1]) {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(AdminContextKey, "token")
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   models.KindUnauthorized,
		"message": message,
		"code":    models.CodeUnauthorized,
	})
}
