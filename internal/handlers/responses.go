package handlers

import (
	"time"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/authz"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/service"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

type authResponse struct {
	User                 userResponse `json:"user"`
	AccessToken          string       `json:"accessToken"`
	AccessTokenExpiresAt time.Time    `json:"accessTokenExpiresAt"`
}

type identityResponse struct {
	Root bool             `json:"root"`
	Role *authz.RoleGrant `json:"role"`
}

type sessionResponse struct {
	ID             int64     `json:"id"`
	IPAddress      string    `json:"ipAddress"`
	UserAgent      string    `json:"userAgent"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Remembered     bool      `json:"remembered"`
	Current        bool      `json:"current"`
}

type roleResponse struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Permissions []permissionResponse `json:"permissions"`
	CreatedAt   time.Time            `json:"createdAt"`
}

type permissionResponse struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.DisplayName,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}

func newAuthResponse(result service.AuthResult) authResponse {
	return authResponse{
		User:                 newUserResponse(result.User),
		AccessToken:          result.AccessToken,
		AccessTokenExpiresAt: result.AccessExpiresAt,
	}
}

func newIdentityResponse(id authz.Identity) identityResponse {
	switch v := id.(type) {
	case authz.Root:
		return identityResponse{Root: true}
	case authz.Standard:
		role := v.Role
		return identityResponse{Role: &role}
	}
	return identityResponse{}
}

func newSessionResponse(view service.SessionView) sessionResponse {
	s := view.Session
	return sessionResponse{
		ID:             s.ID,
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
		Remembered:     len(s.RememberTokenHash) > 0,
		Current:        view.Current,
	}
}

func newPermissionResponse(p models.Permission) permissionResponse {
	return permissionResponse{ID: p.ID, Slug: p.Slug, Description: p.Description, CreatedAt: p.CreatedAt}
}

func newRoleResponse(r models.Role) roleResponse {
	perms := make([]permissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, newPermissionResponse(p))
	}
	return roleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
	}
}
