package memory

import (
	"context"
	"sort"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
)

type RoleRepository struct {
	db *DB
}

func (r *RoleRepository) ListRoles(_ context.Context) ([]models.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	roles := make([]models.Role, 0, len(r.db.roles))
	for _, role := range r.db.roles {
		roles = append(roles, r.db.withPermissions(role))
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func (r *RoleRepository) GetRole(_ context.Context, id int64) (models.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	role, ok := r.db.roles[id]
	if !ok {
		return models.Role{}, repository.ErrRoleNotFound
	}
	role.Permissions = nil
	return role, nil
}

func (r *RoleRepository) CreateRole(_ context.Context, name, description string) (models.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.roleByName(name); ok {
		return models.Role{}, repository.ErrRoleExists
	}
	return r.db.insertRole(name, description), nil
}

func (r *RoleRepository) DeleteRole(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	role, ok := r.db.roles[id]
	if !ok {
		return repository.ErrRoleNotFound
	}
	if role.Name == models.RoleAdmin {
		return repository.ErrRoleProtected
	}

	delete(r.db.roles, id)
	delete(r.db.links, id)
	for userID, user := range r.db.users {
		if user.RoleID != nil && *user.RoleID == id {
			user.RoleID = nil
			r.db.users[userID] = user
		}
	}
	return nil
}

func (r *RoleRepository) ListPermissions(_ context.Context) ([]models.Permission, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	perms := make([]models.Permission, 0, len(r.db.perms))
	for _, perm := range r.db.perms {
		perms = append(perms, perm)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Slug < perms[j].Slug })
	return perms, nil
}

func (r *RoleRepository) CreatePermission(_ context.Context, slug, description string) (models.Permission, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, perm := range r.db.perms {
		if perm.Slug == slug {
			return models.Permission{}, repository.ErrPermissionExists
		}
	}
	return r.db.insertPermission(slug, description), nil
}

func (r *RoleRepository) AttachPermission(_ context.Context, roleID, permissionID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.roles[roleID]; !ok {
		return repository.ErrRoleNotFound
	}
	if _, ok := r.db.perms[permissionID]; !ok {
		return repository.ErrPermissionNotFound
	}
	r.db.links[roleID][permissionID] = struct{}{}
	return nil
}

func (r *RoleRepository) DetachPermission(_ context.Context, roleID, permissionID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if links, ok := r.db.links[roleID]; ok {
		delete(links, permissionID)
	}
	return nil
}
