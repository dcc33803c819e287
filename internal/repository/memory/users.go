package memory

import (
	"context"
	"sort"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
)

type UserRepository struct {
	db *DB
}

func (r *UserRepository) Create(_ context.Context, user models.User) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if existing.Email == user.Email {
			return models.User{}, repository.ErrEmailTaken
		}
	}

	now := r.db.now()
	user.IsRoot = false
	user.RoleID = nil
	if role, ok := r.db.roleByName(models.RoleUser); ok {
		id := role.ID
		user.RoleID = &id
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	r.db.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, user := range r.db.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id string) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id string, hash []byte) error {
	_, err := r.update(id, func(u *models.User) { u.PasswordHash = hash })
	return err
}

func (r *UserRepository) UpdateProfile(_ context.Context, id string, displayName string) (models.User, error) {
	return r.update(id, func(u *models.User) { u.DisplayName = displayName })
}

func (r *UserRepository) UpdateAvatar(_ context.Context, id string, avatarURL string) (models.User, error) {
	return r.update(id, func(u *models.User) { u.AvatarURL = &avatarURL })
}

func (r *UserRepository) AssignRole(_ context.Context, userID string, roleID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if _, ok := r.db.roles[roleID]; !ok {
		return repository.ErrRoleNotFound
	}
	user.RoleID = &roleID
	user.UpdatedAt = r.db.now()
	r.db.users[userID] = user
	return nil
}

func (r *UserRepository) LoadAccess(_ context.Context, userID string) (models.UserAccess, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[userID]
	if !ok {
		return models.UserAccess{}, repository.ErrUserNotFound
	}

	access := models.UserAccess{
		UserID:      user.ID,
		Email:       user.Email,
		IsRoot:      user.IsRoot,
		Permissions: []string{},
	}
	if user.RoleID != nil {
		if role, ok := r.db.roles[*user.RoleID]; ok {
			access.RoleName = role.Name
			for permID := range r.db.links[role.ID] {
				access.Permissions = append(access.Permissions, r.db.perms[permID].Slug)
			}
			sort.Strings(access.Permissions)
		}
	}
	return access, nil
}

func (r *UserRepository) UpsertRoot(_ context.Context, user models.User) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	var roleID *int64
	if role, ok := r.db.roleByName(models.RoleAdmin); ok {
		id := role.ID
		roleID = &id
	}

	for id, existing := range r.db.users {
		if existing.Email == user.Email {
			existing.PasswordHash = user.PasswordHash
			existing.DisplayName = user.DisplayName
			existing.IsRoot = true
			existing.RoleID = roleID
			existing.UpdatedAt = now
			r.db.users[id] = existing
			return existing, nil
		}
	}

	user.IsRoot = true
	user.RoleID = roleID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.db.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) update(id string, mutate func(*models.User)) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	mutate(&user)
	user.UpdatedAt = r.db.now()
	r.db.users[id] = user
	return user, nil
}
