package models

import "time"

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	DisplayName  string
	AvatarURL    *string
	IsRoot       bool
	RoleID       *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role struct {
	ID          int64
	Name        string
	Description string
	Permissions []Permission
	CreatedAt   time.Time
}

// Slugs returns the permission slugs attached to the role.
func (r Role) Slugs() []string {
	slugs := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		slugs = append(slugs, p.Slug)
	}
	return slugs
}

type Permission struct {
	ID          int64
	Slug        string
	Description string
	CreatedAt   time.Time
}

// UserAccess is the live authorization view of a user, loaded per request.
type UserAccess struct {
	UserID      string
	Email       string
	IsRoot      bool
	RoleName    string
	Permissions []string
}
