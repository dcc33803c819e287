package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/middleware"
)

type bulkRevokeRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	views, err := h.auth.ListSessions(c.Request.Context(), identity.UserID(), readCookie(c, refreshCookie))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]sessionResponse, 0, len(views))
	for _, view := range views {
		resp = append(resp, newSessionResponse(view))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": resp})
}

// RevokeSession answers 204 whether or not the id belonged to the caller.
func (h HandlerSet) RevokeSession(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "session id must be a positive integer")
		return
	}

	if err := h.auth.RevokeSession(c.Request.Context(), identity.UserID(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) BulkRevokeSessions(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req bulkRevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "ids must be an array of session ids")
		return
	}

	if _, err := h.auth.BulkRevoke(c.Request.Context(), identity.UserID(), req.IDs); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
