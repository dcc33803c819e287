package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/authz"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
)

const (
	maxRoleNameLength    = 50
	maxDescriptionLength = 255
)

var slugPattern = regexp.MustCompile(`^[a-z0-9_-]+\.[a-z0-9_-]+$`)

type AccessLoader interface {
	LoadAccess(ctx context.Context, userID string) (models.UserAccess, error)
}

// RoleAuthority turns a user id into the caller identity using the role and
// permissions stored right now.
type RoleAuthority struct {
	users AccessLoader
}

func NewRoleAuthority(users AccessLoader) *RoleAuthority {
	return &RoleAuthority{users: users}
}

// Resolve fails with ErrInvalidToken when the user no longer exists.
func (a *RoleAuthority) Resolve(ctx context.Context, userID string) (authz.Identity, error) {
	access, err := a.users.LoadAccess(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load access: %w", err)
	}

	if access.IsRoot {
		return authz.Root{ID: access.UserID, Email: access.Email}, nil
	}

	perms := access.Permissions
	if perms == nil {
		perms = []string{}
	}
	return authz.Standard{
		ID:    access.UserID,
		Email: access.Email,
		Role:  authz.RoleGrant{Name: access.RoleName, Permissions: perms},
	}, nil
}

// RoleAdmin manages roles, permissions and role assignment.
type RoleAdmin struct {
	roles RoleRepository
	users UserStore
	log   zerolog.Logger
}

func NewRoleAdmin(roles RoleRepository, users UserStore, log zerolog.Logger) *RoleAdmin {
	return &RoleAdmin{roles: roles, users: users, log: log}
}

func (a *RoleAdmin) ListRoles(ctx context.Context) ([]models.Role, error) {
	return a.roles.ListRoles(ctx)
}

func (a *RoleAdmin) CreateRole(ctx context.Context, name, description string) (models.Role, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxRoleNameLength {
		return models.Role{}, invalid("role name must be between 1 and %d characters", maxRoleNameLength)
	}
	description, err := normalizeDescription(description)
	if err != nil {
		return models.Role{}, err
	}

	role, err := a.roles.CreateRole(ctx, name, description)
	if err != nil {
		if errors.Is(err, repository.ErrRoleExists) {
			return models.Role{}, fmt.Errorf("%w: role %q already exists", ErrConflict, name)
		}
		return models.Role{}, err
	}
	a.log.Info().Int64("role_id", role.ID).Str("role", role.Name).Msg("role created")
	return role, nil
}

func (a *RoleAdmin) DeleteRole(ctx context.Context, id int64) error {
	role, err := a.roles.GetRole(ctx, id)
	if err != nil {
		return translateRoleErr(err)
	}
	if role.Name == models.RoleAdmin {
		return ErrProtectedRole
	}

	if err := a.roles.DeleteRole(ctx, id); err != nil {
		return translateRoleErr(err)
	}
	a.log.Info().Int64("role_id", id).Str("role", role.Name).Msg("role deleted")
	return nil
}

func (a *RoleAdmin) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return a.roles.ListPermissions(ctx)
}

func (a *RoleAdmin) CreatePermission(ctx context.Context, slug, description string) (models.Permission, error) {
	slug = strings.TrimSpace(slug)
	if !slugPattern.MatchString(slug) {
		return models.Permission{}, invalid("slug must look like resource.action")
	}
	description, err := normalizeDescription(description)
	if err != nil {
		return models.Permission{}, err
	}

	perm, err := a.roles.CreatePermission(ctx, slug, description)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionExists) {
			return models.Permission{}, fmt.Errorf("%w: permission %q already exists", ErrConflict, slug)
		}
		return models.Permission{}, err
	}
	return perm, nil
}

func (a *RoleAdmin) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	if err := a.roles.AttachPermission(ctx, roleID, permissionID); err != nil {
		return translateRoleErr(err)
	}
	a.log.Info().Int64("role_id", roleID).Int64("permission_id", permissionID).Msg("permission attached")
	return nil
}

// DetachPermission removes the link only; the permission record stays.
func (a *RoleAdmin) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	if _, err := a.roles.GetRole(ctx, roleID); err != nil {
		return translateRoleErr(err)
	}
	if err := a.roles.DetachPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	a.log.Info().Int64("role_id", roleID).Int64("permission_id", permissionID).Msg("permission detached")
	return nil
}

func (a *RoleAdmin) AssignRole(ctx context.Context, userID string, roleID int64) error {
	if err := a.users.AssignRole(ctx, userID, roleID); err != nil {
		return translateRoleErr(err)
	}
	a.log.Info().Str("user_id", userID).Int64("role_id", roleID).Msg("role assigned")
	return nil
}

func normalizeDescription(raw string) (string, error) {
	description := strings.TrimSpace(raw)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return "", invalid("description must be at most %d characters", maxDescriptionLength)
	}
	return description, nil
}

func translateRoleErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrRoleProtected):
		return ErrProtectedRole
	case errors.Is(err, repository.ErrRoleNotFound):
		return fmt.Errorf("%w: role", ErrNotFound)
	case errors.Is(err, repository.ErrPermissionNotFound):
		return fmt.Errorf("%w: permission", ErrNotFound)
	case errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	return err
}
