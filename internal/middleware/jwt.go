package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/acadops/timetable-api/internal/service"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
	"github.com/acadops/timetable-api/pkg/response"
)

// ContextIdentityKey is the gin context key storing JWT claims.
const ContextIdentityKey = "currentIdentity"

// JWT protects routes by requiring a valid access token.
func JWT(tokens *service.TokenService) gin.HandlerFunc {
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

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, claims)
		c.Next()
	}
}

// CurrentIdentity returns the claims attached by JWT, if any.
func CurrentIdentity(c *gin.Context) *service.IdentityClaims {
	value, ok := c.Get(ContextIdentityKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*service.IdentityClaims)
	if !ok {
		return nil
	}
	return claims
}
