package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/middleware"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/service"
)

type updateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}

	user, err := h.profile.UpdateProfile(c.Request.Context(), identity.UserID(), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// ChangePassword ends every session of the caller and answers with a fresh
// one for this device.
func (h HandlerSet) ChangePassword(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "currentPassword and newPassword are required")
		return
	}

	result, err := h.auth.ChangePassword(c.Request.Context(), identity.UserID(), req.CurrentPassword, req.NewPassword, deviceFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.clearCookie(c, rememberCookie)
	h.sendAuth(c, http.StatusOK, result)
}

func (h HandlerSet) UploadAvatar(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field file is required")
		return
	}
	defer file.Close()

	if limit := h.cfg.Storage.MaxAvatarSize; limit > 0 && header.Size > limit {
		badRequest(c, "file is too large")
		return
	}

	user, err := h.profile.UploadAvatar(c.Request.Context(), service.AvatarInput{
		UserID:       identity.UserID(),
		File:         file,
		DeclaredType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}
