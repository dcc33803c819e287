package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/authz"
)

// RequireRoles is the role guard: the caller's role must be one of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return Guard(authz.RequireRoles(roles...))
}

// RequirePermissions is the permission guard: the caller's live role must
// hold at least one of slugs.
func RequirePermissions(slugs ...string) gin.HandlerFunc {
	return Guard(authz.RequirePermissions(slugs...))
}

// Guard enforces req against the identity set by Authenticate. Root callers
// always pass; a zero requirement admits any authenticated caller.
func Guard(req authz.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "invalid_token", "authentication required")
			return
		}

		if err := authz.Check(identity, req); err != nil {
			var denial *authz.DenialError
			if errors.As(err, &denial) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":   "forbidden",
					"message": denial.Error(),
					"missing": gin.H{"kind": denial.Kind, "required": denial.Required},
				})
				return
			}
			abort(c, http.StatusForbidden, "forbidden", err.Error())
			return
		}

		c.Next()
	}
}
