package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/config"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/database"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/ids"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/security"
)

// These tests run against a real database and are skipped unless
// CINEID_TEST_POSTGRES_DSN points at a disposable one.
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("CINEID_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CINEID_TEST_POSTGRES_DSN not set, skipping postgres tests")
	}
	if err := database.Migrate(dsn, "up"); err != nil && !errors.Is(err, database.ErrNoChange) {
		require.NoError(t, err)
	}

	pool, err := database.NewPostgresPool(context.Background(), config.PostgresConfig{DSN: dsn, MaxOpen: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func createUser(t *testing.T, pool *pgxpool.Pool) models.User {
	t.Helper()
	id := ids.New()
	user, err := repository.NewUserRepository(pool).Create(context.Background(), models.User{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: []byte("not-a-real-hash"),
		DisplayName:  "Postgres Tester",
	})
	require.NoError(t, err)
	return user
}

func newHash() []byte {
	return security.HashSecret(ids.New())
}

// now is truncated to the column precision so round trips compare equal.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func createSession(t *testing.T, repo *repository.SessionRepository, userID string, at time.Time, remember []byte) models.Session {
	t.Helper()
	session := models.Session{
		UserID:           userID,
		RefreshTokenHash: newHash(),
		IPAddress:        "203.0.113.9",
		UserAgent:        "pg-test",
		CreatedAt:        at,
		ExpiresAt:        at.Add(30 * 24 * time.Hour),
	}
	if remember != nil {
		until := at.Add(90 * 24 * time.Hour)
		session.RememberTokenHash = remember
		session.RememberExpiresAt = &until
	}
	created, err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	return created
}

func TestSessionRepository_RotateSwapsOnce(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()
	repo := repository.NewSessionRepository(pool)
	user := createUser(t, pool)
	start := now()
	session := createSession(t, repo, user.ID, start, nil)

	oldHash := session.RefreshTokenHash
	rotated := newHash()
	later := start.Add(time.Minute)
	updated, err := repo.Rotate(ctx, models.Rotation{
		SessionID: session.ID,
		OldHash:   oldHash,
		NewHash:   rotated,
		Now:       later,
		ExpiresAt: later.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, rotated, updated.RefreshTokenHash)
	assert.True(t, later.Equal(updated.LastActivityAt))

	_, err = repo.Rotate(ctx, models.Rotation{
		SessionID: session.ID,
		OldHash:   oldHash,
		NewHash:   newHash(),
		Now:       later,
		ExpiresAt: later.Add(30 * 24 * time.Hour),
	})
	assert.ErrorIs(t, err, repository.ErrRotationConflict)

	match, err := repo.FindByRefreshHash(ctx, oldHash)
	require.NoError(t, err)
	assert.True(t, match.Superseded)
	assert.Equal(t, session.ID, match.Session.ID)
	assert.Equal(t, models.SessionRotated, match.State(later))

	current, err := repo.FindByRefreshHash(ctx, rotated)
	require.NoError(t, err)
	assert.False(t, current.Superseded)
	assert.Equal(t, models.SessionActive, current.State(later))
}

func TestSessionRepository_ConcurrentRotateHasOneWinner(t *testing.T) {
	pool := openPool(t)
	repo := repository.NewSessionRepository(pool)
	user := createUser(t, pool)
	start := now()
	session := createSession(t, repo, user.ID, start, nil)

	const callers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Rotate(context.Background(), models.Rotation{
				SessionID: session.ID,
				OldHash:   session.RefreshTokenHash,
				NewHash:   newHash(),
				Now:       start.Add(time.Second),
				ExpiresAt: start.Add(30 * 24 * time.Hour),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, repository.ErrRotationConflict):
				conflicts++
			default:
				t.Errorf("unexpected rotate error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, conflicts)
}

func TestSessionRepository_RotateRefusesExpired(t *testing.T) {
	pool := openPool(t)
	repo := repository.NewSessionRepository(pool)
	user := createUser(t, pool)
	start := now()
	session := createSession(t, repo, user.ID, start, nil)

	late := start.Add(31 * 24 * time.Hour)
	_, err := repo.Rotate(context.Background(), models.Rotation{
		SessionID: session.ID,
		OldHash:   session.RefreshTokenHash,
		NewHash:   newHash(),
		Now:       late,
		ExpiresAt: late.Add(30 * 24 * time.Hour),
	})
	assert.ErrorIs(t, err, repository.ErrRotationConflict)
}

func TestSessionRepository_ReplaceRememberedConsumesOnce(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()
	repo := repository.NewSessionRepository(pool)
	user := createUser(t, pool)
	start := now()
	remember := newHash()
	old := createSession(t, repo, user.ID, start, remember)

	// the refresh half has expired but the remember half has not
	at := start.Add(31 * 24 * time.Hour)
	nextRemember := newHash()
	until := at.Add(90 * 24 * time.Hour)
	next := models.Session{
		UserID:            user.ID,
		RefreshTokenHash:  newHash(),
		RememberTokenHash: nextRemember,
		RememberExpiresAt: &until,
		CreatedAt:         at,
		ExpiresAt:         at.Add(30 * 24 * time.Hour),
	}

	created, err := repo.ReplaceRemembered(ctx, old.ID, remember, next, at)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, created.ID)
	assert.Equal(t, nextRemember, created.RememberTokenHash)

	_, err = repo.FindByRememberHash(ctx, remember)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	next.RefreshTokenHash = newHash()
	next.RememberTokenHash = newHash()
	_, err = repo.ReplaceRemembered(ctx, old.ID, remember, next, at)
	assert.ErrorIs(t, err, repository.ErrRotationConflict)

	match, err := repo.FindByRefreshHash(ctx, old.RefreshTokenHash)
	require.NoError(t, err)
	assert.Equal(t, models.SessionRevoked, match.State(at))

	listed, err := repo.ListByUser(ctx, user.ID, at)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestSessionRepository_ReplaceRememberedRefusesRevoked(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()
	repo := repository.NewSessionRepository(pool)
	user := createUser(t, pool)
	start := now()
	remember := newHash()
	old := createSession(t, repo, user.ID, start, remember)
	require.NoError(t, repo.Revoke(ctx, old.ID, start))

	_, err := repo.ReplaceRemembered(ctx, old.ID, remember, models.Session{
		UserID:           user.ID,
		RefreshTokenHash: newHash(),
		CreatedAt:        start,
		ExpiresAt:        start.Add(time.Hour),
	}, start)
	assert.ErrorIs(t, err, repository.ErrRotationConflict)
}

func TestUserRepository_LoadAccessFollowsRole(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()
	users := repository.NewUserRepository(pool)
	user := createUser(t, pool)

	access, err := users.LoadAccess(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, access.RoleName)
	assert.False(t, access.IsRoot)
	assert.NotContains(t, access.Permissions, "roles.read")

	roles, err := repository.NewRoleRepository(pool).ListRoles(ctx)
	require.NoError(t, err)
	var adminID int64
	for _, role := range roles {
		if role.Name == models.RoleAdmin {
			adminID = role.ID
		}
	}
	require.NotZero(t, adminID)

	require.NoError(t, users.AssignRole(ctx, user.ID, adminID))
	access, err = users.LoadAccess(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, access.RoleName)
	assert.Contains(t, access.Permissions, "roles.read")

	_, err = users.LoadAccess(ctx, ids.New())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	assert.ErrorIs(t, users.AssignRole(ctx, user.ID, -1), repository.ErrRoleNotFound)
}
