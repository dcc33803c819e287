// Package memory holds map-backed repositories with the same semantics and
// sentinel errors as the postgres ones. Services and handlers are tested
// against it.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

// DB is the shared state behind the repositories returned by its accessors.
// One mutex guards every table so multi-table operations stay atomic.
type DB struct {
	mu sync.Mutex

	users    map[string]models.User
	sessions map[int64]models.Session
	rotated  map[string]int64
	roles    map[int64]models.Role
	perms    map[int64]models.Permission
	links    map[int64]map[int64]struct{}
	events   []models.SecurityEvent

	nextSession int64
	nextRole    int64
	nextPerm    int64
	nextEvent   int64

	now func() time.Time
}

var defaultPermissions = []string{
	"roles.read",
	"roles.manage",
	"permissions.manage",
	"users.manage",
	"sessions.manage",
}

// New returns a DB seeded like the initial migration: roles Admin and User,
// the builtin permissions, all of them granted to Admin.
func New() *DB {
	db := &DB{
		users:    make(map[string]models.User),
		sessions: make(map[int64]models.Session),
		rotated:  make(map[string]int64),
		roles:    make(map[int64]models.Role),
		perms:    make(map[int64]models.Permission),
		links:    make(map[int64]map[int64]struct{}),
		now:      time.Now,
	}

	admin := db.insertRole(models.RoleAdmin, "Full administrative access")
	db.insertRole(models.RoleUser, "Default role for registered accounts")
	for _, slug := range defaultPermissions {
		perm := db.insertPermission(slug, "")
		db.links[admin.ID][perm.ID] = struct{}{}
	}
	return db
}

// WithClock sets the clock used for created_at style columns.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
	return db
}

func (db *DB) Users() *UserRepository       { return &UserRepository{db: db} }
func (db *DB) Sessions() *SessionRepository { return &SessionRepository{db: db} }
func (db *DB) Roles() *RoleRepository       { return &RoleRepository{db: db} }
func (db *DB) Events() *EventRepository     { return &EventRepository{db: db} }

func (db *DB) insertRole(name, description string) models.Role {
	db.nextRole++
	role := models.Role{ID: db.nextRole, Name: name, Description: description, CreatedAt: db.now()}
	db.roles[role.ID] = role
	db.links[role.ID] = make(map[int64]struct{})
	return role
}

func (db *DB) insertPermission(slug, description string) models.Permission {
	db.nextPerm++
	perm := models.Permission{ID: db.nextPerm, Slug: slug, Description: description, CreatedAt: db.now()}
	db.perms[perm.ID] = perm
	return perm
}

func (db *DB) roleByName(name string) (models.Role, bool) {
	for _, role := range db.roles {
		if role.Name == name {
			return role, true
		}
	}
	return models.Role{}, false
}

// withPermissions attaches the linked permissions sorted by slug.
func (db *DB) withPermissions(role models.Role) models.Role {
	role.Permissions = nil
	for permID := range db.links[role.ID] {
		role.Permissions = append(role.Permissions, db.perms[permID])
	}
	sort.Slice(role.Permissions, func(i, j int) bool {
		return role.Permissions[i].Slug < role.Permissions[j].Slug
	})
	return role
}
