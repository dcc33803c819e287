package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/authz"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/middleware"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps service errors onto status codes. Anything unrecognised is
// logged and reported as a bare 500.
func (h HandlerSet) writeError(c *gin.Context, err error) {
	var denial *authz.DenialError
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation_error", Message: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid_credentials", Message: "invalid email or password"})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid_token", Message: "token is missing, invalid or expired"})
	case errors.As(err, &denial):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": denial.Error(),
			"missing": gin.H{"kind": denial.Kind, "required": denial.Required},
		})
	case errors.Is(err, authz.ErrForbidden):
		c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden", Message: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: "conflict", Message: err.Error()})
	default:
		h.log.Error().
			Err(err).
			Str("path", c.FullPath()).
			Str("request_id", middleware.RequestIDFrom(c)).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "internal server error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "validation_error", Message: message})
}
