package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

func sessionState(t *testing.T, env *testEnv, id int64) models.SessionState {
	t.Helper()
	session, err := env.db.Sessions().GetByID(context.Background(), id)
	require.NoError(t, err)
	return session.State(env.clock.Now())
}

func TestRotate_SucceedsExactlyOncePerSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.register(t, "rot@example.com")
	raw := res.Refresh.Raw

	env.clock.Advance(time.Minute)
	next, err := env.sessions.Rotate(ctx, raw, device)
	require.NoError(t, err)
	assert.NotEqual(t, raw, next.Refresh.Raw)
	assert.Equal(t, env.clock.Now().Add(30*24*time.Hour), next.Session.ExpiresAt)
	assert.Equal(t, env.clock.Now(), next.Session.LastActivityAt)

	_, err = env.sessions.Rotate(ctx, raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, models.SessionRevoked, sessionState(t, env, next.Session.ID))

	_, err = env.sessions.Rotate(ctx, next.Refresh.Raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken, "the newest secret dies with the session")

	reuse := env.events.ofType(models.EventReuseDetected)
	require.Len(t, reuse, 1)
	assert.Equal(t, res.User.ID, reuse[0].UserID)
	assert.Equal(t, next.Session.ID, reuse[0].SessionID)
}

func TestRotate_UnknownOrEmptySecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sessions.Rotate(ctx, "", device)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.sessions.Rotate(ctx, "never-issued", device)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotate_FailsAfterRevoke(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.register(t, "rev@example.com")

	id, ok := env.sessions.ResolveCurrent(ctx, res.Refresh.Raw)
	require.True(t, ok)
	require.NoError(t, env.sessions.Revoke(ctx, id, res.User.ID))

	_, err := env.sessions.Rotate(ctx, res.Refresh.Raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Empty(t, env.events.ofType(models.EventReuseDetected))
}

func TestRotate_ExpiredAfterThirtyOneDays(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "exp@example.com")

	env.clock.Advance(31 * 24 * time.Hour)
	_, err := env.sessions.Rotate(context.Background(), res.Refresh.Raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotate_ExpiredWithoutRememberIsRevoked(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "gone@example.com")
	id, ok := env.sessions.ResolveCurrent(context.Background(), res.Refresh.Raw)
	require.True(t, ok)

	env.clock.Advance(31 * 24 * time.Hour)
	_, err := env.sessions.Rotate(context.Background(), res.Refresh.Raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, models.SessionRevoked, sessionState(t, env, id))
	assert.Empty(t, env.events.ofType(models.EventReuseDetected))
}

func TestRemember_RecoversAfterExpiredRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "back@example.com")
	login := env.login(t, "back@example.com", true)
	require.NotNil(t, login.Remember)

	env.clock.Advance(31 * 24 * time.Hour)
	_, err := env.auth.Refresh(ctx, login.Refresh.Raw, device)
	require.ErrorIs(t, err, ErrInvalidToken)

	// a second attempt with the dead refresh secret changes nothing
	_, err = env.auth.Refresh(ctx, login.Refresh.Raw, device)
	require.ErrorIs(t, err, ErrInvalidToken)

	res, err := env.auth.Remember(ctx, login.Remember.Raw, device)
	require.NoError(t, err)
	require.NotNil(t, res.Refresh)
	assert.Equal(t, login.User.ID, res.User.ID)

	_, err = env.auth.Refresh(ctx, login.Refresh.Raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken, "the old refresh secret stays dead")
	_, err = env.auth.Refresh(ctx, res.Refresh.Raw, device)
	assert.NoError(t, err)
}

func TestRotate_ConcurrentCallersExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "race@example.com")
	id, ok := env.sessions.ResolveCurrent(context.Background(), res.Refresh.Raw)
	require.True(t, ok)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.sessions.Rotate(context.Background(), res.Refresh.Raw, device)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if assert.ErrorIs(t, err, ErrInvalidToken) {
				failures++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, failures)
	assert.Equal(t, models.SessionRevoked, sessionState(t, env, id))
}

func TestBulkRevoke_SkipsSessionsOfOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a1 := env.register(t, "a@example.com")
	a2 := env.login(t, "a@example.com", false)
	b1 := env.register(t, "b@example.com")

	id1, _ := env.sessions.ResolveCurrent(ctx, a1.Refresh.Raw)
	id2, _ := env.sessions.ResolveCurrent(ctx, a2.Refresh.Raw)
	id3, _ := env.sessions.ResolveCurrent(ctx, b1.Refresh.Raw)
	require.Equal(t, []int64{1, 2, 3}, []int64{id1, id2, id3})

	n, err := env.auth.BulkRevoke(ctx, a1.User.ID, []int64{2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, models.SessionActive, sessionState(t, env, 1))
	assert.Equal(t, models.SessionRevoked, sessionState(t, env, 2))
	assert.Equal(t, models.SessionActive, sessionState(t, env, 3))
}

func TestRevoke_ForeignSessionIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "owner@example.com")
	b := env.register(t, "other@example.com")

	id, _ := env.sessions.ResolveCurrent(ctx, a.Refresh.Raw)
	require.NoError(t, env.auth.RevokeSession(ctx, b.User.ID, id))
	assert.Equal(t, models.SessionActive, sessionState(t, env, id))
}

func TestRevokeAll_CountMatchesAndSecretsDie(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.register(t, "all@example.com")
	secrets := []string{first.Refresh.Raw}
	for i := 0; i < 2; i++ {
		secrets = append(secrets, env.login(t, "all@example.com", false).Refresh.Raw)
	}

	before, err := env.auth.ListSessions(ctx, first.User.ID, "")
	require.NoError(t, err)

	n, err := env.auth.LogoutAll(ctx, first.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(len(before)), n)
	assert.Equal(t, int64(3), n)

	for _, raw := range secrets {
		_, err := env.auth.Refresh(ctx, raw, device)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Len(t, env.events.ofType(models.EventRevokedAll), 1)
}

func TestList_CurrentSessionFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.register(t, "list@example.com")
	env.clock.Advance(time.Hour)
	second := env.login(t, "list@example.com", false)

	views, err := env.auth.ListSessions(ctx, first.User.ID, first.Refresh.Raw)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].Current)
	assert.False(t, views[1].Current)

	secondID, _ := env.sessions.ResolveCurrent(ctx, second.Refresh.Raw)
	assert.Equal(t, secondID, views[1].Session.ID)

	views, err = env.auth.ListSessions(ctx, first.User.ID, "")
	require.NoError(t, err)
	assert.Equal(t, secondID, views[0].Session.ID, "without a cookie the most recent comes first")
}

func TestRemember_ReissuesAndConsumesOldSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "mem@example.com")
	login := env.login(t, "mem@example.com", true)
	require.NotNil(t, login.Remember)
	oldID, _ := env.sessions.ResolveCurrent(ctx, login.Refresh.Raw)

	env.clock.Advance(40 * 24 * time.Hour)
	res, err := env.auth.Remember(ctx, login.Remember.Raw, device)
	require.NoError(t, err)
	require.NotNil(t, res.Remember)
	require.NotNil(t, res.Refresh)
	assert.NotEqual(t, login.Remember.Raw, res.Remember.Raw)
	assert.NotEmpty(t, res.AccessToken)

	_, err = env.auth.Remember(ctx, login.Remember.Raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, models.SessionRevoked, sessionState(t, env, oldID))

	_, err = env.auth.Refresh(ctx, res.Refresh.Raw, device)
	assert.NoError(t, err)
}

func TestRemember_Expired(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "old@example.com")
	login := env.login(t, "old@example.com", true)

	env.clock.Advance(91 * 24 * time.Hour)
	_, err := env.auth.Remember(context.Background(), login.Remember.Raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_RevokesPresentedSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "out@example.com")
	login := env.login(t, "out@example.com", true)

	require.NoError(t, env.auth.Logout(ctx, login.Refresh.Raw, login.Remember.Raw))
	require.NoError(t, env.auth.Logout(ctx, "", "unknown"))

	_, err := env.auth.Refresh(ctx, login.Refresh.Raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = env.auth.Remember(ctx, login.Remember.Raw, device)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
