package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/authz"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/security"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/service"
)

const (
	identityKey = "identity"
	claimsKey   = "access_claims"
)

type AccessTokenParser interface {
	ParseAccessToken(token string) (*security.AccessClaims, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (authz.Identity, error)
}

// Authenticate verifies the bearer access token and loads the caller's live
// role and permissions. It runs once per request, before any guard.
func Authenticate(tokens AccessTokenParser, resolver IdentityResolver, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abort(c, http.StatusUnauthorized, "invalid_token", "missing bearer token")
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := tokens.ParseAccessToken(tokenStr)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid_token", "access token is invalid or expired")
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				abort(c, http.StatusUnauthorized, "invalid_token", "access token is invalid or expired")
				return
			}
			log.Error().Err(err).Str("user_id", claims.Subject).Str("request_id", RequestIDFrom(c)).Msg("resolve identity failed")
			abort(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		c.Set(claimsKey, *claims)
		c.Set(identityKey, identity)

		c.Next()
	}
}

// CurrentIdentity returns the identity attached by Authenticate.
func CurrentIdentity(c *gin.Context) (authz.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(authz.Identity)
	return identity, ok && identity != nil
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}
