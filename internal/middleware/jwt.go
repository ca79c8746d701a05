package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/middleware/requestid"
	"github.com/noah-isme/archive-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// Claims returns the JWT claims stored by JWT, if any.
func Claims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

// ActorFromContext builds the request actor from the token claims and connection details.
// The request id doubles as the audit session id.
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	actor := models.Actor{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		SessionID: requestid.Value(c),
	}
	claims := Claims(c)
	if claims == nil {
		return actor, false
	}
	actor.UserID = claims.UserID
	actor.Email = claims.Email
	actor.Role = claims.Role
	return actor, true
}
