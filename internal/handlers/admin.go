package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/middleware"
)

type createRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type createPermissionRequest struct {
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description"`
}

type assignRoleRequest struct {
	RoleID int64 `json:"roleId" binding:"required"`
}

func (h HandlerSet) ListRoles(c *gin.Context) {
	roles, err := h.roles.ListRoles(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, newRoleResponse(role))
	}
	c.JSON(http.StatusOK, gin.H{"roles": resp})
}

func (h HandlerSet) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}

	role, err := h.roles.CreateRole(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"role": newRoleResponse(role)})
}

func (h HandlerSet) DeleteRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.roles.DeleteRole(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AttachPermission(c *gin.Context) {
	roleID, ok := idParam(c, "id")
	if !ok {
		return
	}
	permID, ok := idParam(c, "permissionId")
	if !ok {
		return
	}

	if err := h.roles.AttachPermission(c.Request.Context(), roleID, permID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) DetachPermission(c *gin.Context) {
	roleID, ok := idParam(c, "id")
	if !ok {
		return
	}
	permID, ok := idParam(c, "permissionId")
	if !ok {
		return
	}

	if err := h.roles.DetachPermission(c.Request.Context(), roleID, permID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) ListPermissions(c *gin.Context) {
	perms, err := h.roles.ListPermissions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		resp = append(resp, newPermissionResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"permissions": resp})
}

func (h HandlerSet) CreatePermission(c *gin.Context) {
	var req createPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "slug is required")
		return
	}

	perm, err := h.roles.CreatePermission(c.Request.Context(), req.Slug, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"permission": newPermissionResponse(perm)})
}

func (h HandlerSet) AssignUserRole(c *gin.Context) {
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "roleId is required")
		return
	}

	if err := h.roles.AssignRole(c.Request.Context(), c.Param("id"), req.RoleID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) RevokeUserSessions(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	revoked, err := h.auth.AdminRevokeAll(c.Request.Context(), identity.UserID(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": revoked})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
