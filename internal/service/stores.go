package service

import (
	"context"
	"io"
	"time"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

// Clock returns the current time. Tests replace it to move through expiry.
type Clock func() time.Time

type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpdatePassword(ctx context.Context, id string, hash []byte) error
	UpdateProfile(ctx context.Context, id string, displayName string) (models.User, error)
	UpdateAvatar(ctx context.Context, id string, avatarURL string) (models.User, error)
	AssignRole(ctx context.Context, userID string, roleID int64) error
	LoadAccess(ctx context.Context, userID string) (models.UserAccess, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session models.Session) (models.Session, error)
	FindByRefreshHash(ctx context.Context, hash []byte) (models.SessionMatch, error)
	FindByRememberHash(ctx context.Context, hash []byte) (models.Session, error)
	Rotate(ctx context.Context, rot models.Rotation) (models.Session, error)
	ReplaceRemembered(ctx context.Context, oldID int64, oldHash []byte, next models.Session, now time.Time) (models.Session, error)
	Revoke(ctx context.Context, id int64, now time.Time) error
	RevokeOwned(ctx context.Context, ids []int64, userID string, now time.Time) (int64, error)
	RevokeAllByUser(ctx context.Context, userID string, now time.Time) (int64, error)
	ListByUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error)
}

type RoleRepository interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	GetRole(ctx context.Context, id int64) (models.Role, error)
	CreateRole(ctx context.Context, name, description string) (models.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	CreatePermission(ctx context.Context, slug, description string) (models.Permission, error)
	AttachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID, permissionID int64) error
}

// EventPublisher hands security events to the audit pipeline. Publishing is
// best effort and never fails the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event models.SecurityEvent)
}

type AvatarStore interface {
	PutAvatar(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	RemoveAvatar(ctx context.Context, objectURL string) error
}
