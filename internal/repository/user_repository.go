package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, display_name, avatar_url, is_root, role_id, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts user with the default "User" role. is_root is never written
// here; only the seed command sets it.
func (r *UserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (
			id, email, password_hash, display_name, avatar_url, role_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, (SELECT id FROM roles WHERE name = $6), NOW(), NOW()
		)
		RETURNING `+userColumns,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.AvatarURL,
		models.RoleUser,
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, displayName string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET display_name = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+userColumns, id, displayName)
	return scanUser(row)
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id string, avatarURL string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET avatar_url = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+userColumns, id, avatarURL)
	return scanUser(row)
}

func (r *UserRepository) AssignRole(ctx context.Context, userID string, roleID int64) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1
	`, userID, roleID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrRoleNotFound
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// LoadAccess resolves the live role and permission slugs of a user.
func (r *UserRepository) LoadAccess(ctx context.Context, userID string) (models.UserAccess, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.is_root, COALESCE(r.name, ''),
		       COALESCE(array_agg(p.slug ORDER BY p.slug) FILTER (WHERE p.slug IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE u.id = $1
		GROUP BY u.id, u.email, u.is_root, r.name
	`, userID)

	var access models.UserAccess
	if err := row.Scan(&access.UserID, &access.Email, &access.IsRoot, &access.RoleName, &access.Permissions); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserAccess{}, ErrUserNotFound
		}
		return models.UserAccess{}, err
	}
	return access, nil
}

// UpsertRoot creates or refreshes the root account. It is the only code path
// that sets is_root.
func (r *UserRepository) UpsertRoot(ctx context.Context, user models.User) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (
			id, email, password_hash, display_name, is_root, role_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, TRUE, (SELECT id FROM roles WHERE name = $5), NOW(), NOW()
		)
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			display_name = EXCLUDED.display_name,
			is_root = TRUE,
			role_id = EXCLUDED.role_id,
			updated_at = NOW()
		RETURNING `+userColumns,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		models.RoleAdmin,
	)
	return scanUser(row)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.AvatarURL,
		&user.IsRoot,
		&user.RoleID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
