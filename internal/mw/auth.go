package mw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gearguard-backend/internal/auth"
	"gearguard-backend/internal/model"
)

const identityKey = "gearguard.identity"

// IdentityResolver turns a bearer token into an identity.
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, token string) (*model.Identity, error)
}

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header. It returns "" when the header is absent or malformed.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Identify resolves the caller's token and stores the identity on the
// context. A present but unusable token is rejected; a missing one is
// rejected only when required is set.
func Identify(resolver IdentityResolver, required bool, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			if c.GetHeader("Authorization") != "" || required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
				return
			}
			c.Next()
			return
		}

		ident, err := resolver.CurrentIdentity(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(identityKey, *ident)
			c.Next()
		case errors.Is(err, auth.ErrUnauthenticated):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		default:
			log.Error("resolving identity failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not resolve identity"})
		}
	}
}

// IdentityFrom returns the identity stored by Identify.
func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	ident, ok := v.(model.Identity)
	return ident, ok
}

// RequireAdmin allows only the administrator identity through.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if ident.Role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			return
		}
		c.Next()
	}
}
