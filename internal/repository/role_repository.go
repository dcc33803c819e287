package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

var (
	ErrRoleNotFound       = errors.New("role not found")
	ErrRoleExists         = errors.New("role already exists")
	ErrRoleProtected      = errors.New("role is protected")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrPermissionExists   = errors.New("permission already exists")
)

const foreignKeyViolation = "23503"

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// ListRoles returns every role with its permissions attached.
func (r *RoleRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.created_at,
		       p.id, p.slug, p.description, p.created_at
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		ORDER BY r.id, p.slug
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var (
			role     models.Role
			permID   *int64
			permSlug *string
			permDesc *string
			permAt   *time.Time
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &permID, &permSlug, &permDesc, &permAt); err != nil {
			return nil, err
		}
		if len(roles) == 0 || roles[len(roles)-1].ID != role.ID {
			roles = append(roles, role)
		}
		if permID != nil {
			current := &roles[len(roles)-1]
			perm := models.Permission{ID: *permID, Slug: *permSlug}
			if permDesc != nil {
				perm.Description = *permDesc
			}
			if permAt != nil {
				perm.CreatedAt = *permAt
			}
			current.Permissions = append(current.Permissions, perm)
		}
	}
	return roles, rows.Err()
}

func (r *RoleRepository) GetRole(ctx context.Context, id int64) (models.Role, error) {
	var role models.Role
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at FROM roles WHERE id = $1
	`, id).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Role{}, ErrRoleNotFound
		}
		return models.Role{}, err
	}
	return role, nil
}

func (r *RoleRepository) CreateRole(ctx context.Context, name, description string) (models.Role, error) {
	var role models.Role
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description) VALUES ($1, $2)
		RETURNING id, name, description, created_at
	`, name, description).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Role{}, ErrRoleExists
		}
		return models.Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role and its permission links. The Admin role is
// refused at the statement level as well as by the service.
func (r *RoleRepository) DeleteRole(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1 AND name <> $2`, id, models.RoleAdmin)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		role, err := r.GetRole(ctx, id)
		if err != nil {
			return err
		}
		if role.Name == models.RoleAdmin {
			return ErrRoleProtected
		}
		return ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, slug, description, created_at FROM permissions ORDER BY slug
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Slug, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *RoleRepository) CreatePermission(ctx context.Context, slug, description string) (models.Permission, error) {
	var p models.Permission
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (slug, description) VALUES ($1, $2)
		RETURNING id, slug, description, created_at
	`, slug, description).Scan(&p.ID, &p.Slug, &p.Description, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Permission{}, ErrPermissionExists
		}
		return models.Permission{}, err
	}
	return p, nil
}

func (r *RoleRepository) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, roleID, permissionID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			if pgErr.ConstraintName == "role_permissions_role_id_fkey" {
				return ErrRoleNotFound
			}
			return ErrPermissionNotFound
		}
		return err
	}
	return nil
}

// DetachPermission removes only the relation row; the permission survives.
func (r *RoleRepository) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2
	`, roleID, permissionID)
	return err
}
