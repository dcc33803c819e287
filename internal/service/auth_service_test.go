package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

func TestLogin_IssuesAccessTokenAndSecrets(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "login@example.com")
	assert.Nil(t, reg.Remember)
	require.NotNil(t, reg.Refresh)

	res := env.login(t, "login@example.com", true)
	require.NotNil(t, res.Refresh)
	require.NotNil(t, res.Remember)
	assert.Equal(t, t0.Add(15*time.Minute), res.AccessExpiresAt)
	assert.Equal(t, t0.Add(90*24*time.Hour), res.Remember.ExpiresAt)

	claims, err := env.tokens.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.Subject)
	assert.Equal(t, "login@example.com", claims.Email)

	succeeded := env.events.ofType(models.EventLoginSucceeded)
	require.Len(t, succeeded, 1)
	assert.Equal(t, "true", succeeded[0].Detail["remember"])
}

func TestLogin_FailurePublishesEvent(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "fail@example.com")

	_, err := env.auth.Login(context.Background(), LoginInput{Email: "fail@example.com", Password: "nope nope", Device: device})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	failed := env.events.ofType(models.EventLoginFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, device.IPAddress, failed[0].IPAddress)
	assert.Empty(t, failed[0].UserID)
}

func TestRefresh_ReturnsNewAccessToken(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "ref@example.com")

	env.clock.Advance(10 * time.Minute)
	res, err := env.auth.Refresh(context.Background(), reg.Refresh.Raw, device)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.Equal(t, env.clock.Now().Add(15*time.Minute), res.AccessExpiresAt)
	assert.Nil(t, res.Remember)
	assert.NotEqual(t, reg.Refresh.Raw, res.Refresh.Raw)
}

func TestChangePassword_RevokesEverySessionAndOpensOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.register(t, "pw@example.com")
	other := env.login(t, "pw@example.com", true)

	_, err := env.auth.ChangePassword(ctx, reg.User.ID, "bad guess!", "brand new pass", device)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := env.auth.ChangePassword(ctx, reg.User.ID, "correct horse", "brand new pass", device)
	require.NoError(t, err)
	require.NotNil(t, res.Refresh)

	for _, raw := range []string{reg.Refresh.Raw, other.Refresh.Raw} {
		_, err := env.auth.Refresh(ctx, raw, device)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	_, err = env.auth.Remember(ctx, other.Remember.Raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.auth.Refresh(ctx, res.Refresh.Raw, device)
	assert.NoError(t, err)

	assert.Len(t, env.events.ofType(models.EventPasswordChange), 1)
}

func TestBulkRevoke_RejectsOversizedList(t *testing.T) {
	env := newTestEnv(t)
	ids := make([]int64, maxBulkRevoke+1)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	_, err := env.auth.BulkRevoke(context.Background(), "u", ids)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAdminRevokeAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	victim := env.register(t, "victim@example.com")
	env.login(t, "victim@example.com", false)

	n, err := env.auth.AdminRevokeAll(ctx, "admin-id", victim.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = env.auth.AdminRevokeAll(ctx, "admin-id", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "me@example.com")

	user, err := env.auth.Me(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tester", user.DisplayName)

	_, err = env.auth.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
