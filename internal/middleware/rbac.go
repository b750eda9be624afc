package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/response"
)

// RequireStaff admits staff users and superusers.
func RequireStaff() gin.HandlerFunc {
	return requireClaims(func(claims *models.JWTClaims) bool {
		return claims.IsStaff || claims.IsSuperuser
	})
}

// RequireSuperuser admits superusers only.
func RequireSuperuser() gin.HandlerFunc {
	return requireClaims(func(claims *models.JWTClaims) bool {
		return claims.IsSuperuser
	})
}

func requireClaims(allowed func(*models.JWTClaims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok || !allowed(claims) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
