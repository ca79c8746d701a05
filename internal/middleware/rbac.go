package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/response"
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...models.UserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, r := range allowed {
		allowedRoles[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireManager admits system and archive managers.
func RequireManager() gin.HandlerFunc {
	return RBAC(models.RoleSystemManager, models.RoleArchiveManager)
}

// RequireWriter admits every role allowed to upload or modify documents.
func RequireWriter() gin.HandlerFunc {
	return RBAC(models.RoleSystemManager, models.RoleArchiveManager, models.RoleArchiveUser)
}

// RequireReader admits every archive role.
func RequireReader() gin.HandlerFunc {
	return RBAC(models.RoleSystemManager, models.RoleArchiveManager, models.RoleArchiveUser, models.RoleArchiveViewer)
}
