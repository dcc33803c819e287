package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/middleware"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/service"
)

const maxUserAgentLength = 512

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

func deviceFrom(c *gin.Context) service.DeviceInfo {
	ua := c.GetHeader("User-Agent")
	if len(ua) > maxUserAgentLength {
		ua = ua[:maxUserAgentLength]
	}
	return service.DeviceInfo{IPAddress: c.ClientIP(), UserAgent: ua}
}

func (h HandlerSet) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email, password and name are required")
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Device:   deviceFrom(c),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.sendAuth(c, http.StatusCreated, result)
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Remember: req.Remember,
		Device:   deviceFrom(c),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.sendAuth(c, http.StatusOK, result)
}

func (h HandlerSet) Refresh(c *gin.Context) {
	raw := readCookie(c, refreshCookie)
	if raw == "" {
		h.writeError(c, service.ErrInvalidToken)
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), raw, deviceFrom(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			h.clearCookie(c, refreshCookie)
		}
		h.writeError(c, err)
		return
	}

	h.sendAuth(c, http.StatusOK, result)
}

func (h HandlerSet) Remember(c *gin.Context) {
	raw := readCookie(c, rememberCookie)
	if raw == "" {
		h.writeError(c, service.ErrInvalidToken)
		return
	}

	result, err := h.auth.Remember(c.Request.Context(), raw, deviceFrom(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			h.clearCookie(c, rememberCookie)
		}
		h.writeError(c, err)
		return
	}

	h.sendAuth(c, http.StatusOK, result)
}

// Logout always clears the cookies, even when revoking fails.
func (h HandlerSet) Logout(c *gin.Context) {
	refresh := readCookie(c, refreshCookie)
	remember := readCookie(c, rememberCookie)
	h.clearSessionCookies(c)

	if err := h.auth.Logout(c.Request.Context(), refresh, remember); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) LogoutAll(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	revoked, err := h.auth.LogoutAll(c.Request.Context(), identity.UserID())
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"revoked": revoked})
}

func (h HandlerSet) Me(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	user, err := h.auth.Me(c.Request.Context(), identity.UserID())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     newUserResponse(user),
		"identity": newIdentityResponse(identity),
	})
}

// sendAuth sets the secret cookies carried by result and writes the body.
func (h HandlerSet) sendAuth(c *gin.Context, status int, result service.AuthResult) {
	h.setRefreshCookie(c, result.Refresh)
	h.setRememberCookie(c, result.Remember)
	c.JSON(status, newAuthResponse(result))
}
