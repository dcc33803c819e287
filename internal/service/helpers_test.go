package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository/memory"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/security"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event models.SecurityEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(t models.SecurityEventType) []models.SecurityEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.SecurityEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeAvatarStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func (s *fakeAvatarStore) PutAvatar(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = data
	return "https://cdn.test/avatars/" + key, nil
}

func (s *fakeAvatarStore) RemoveAvatar(_ context.Context, objectURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, objectURL)
	return nil
}

type testEnv struct {
	db       *memory.DB
	clock    *fakeClock
	events   *recordingPublisher
	tokens   *security.TokenIssuer
	sessions *SessionStore
	auth     *AuthService
	creds    *CredentialStore
	roles    *RoleAdmin
	resolver *RoleAuthority
	avatars  *fakeAvatarStore
	profile  *ProfileService
}

var device = DeviceInfo{IPAddress: "203.0.113.7", UserAgent: "test-agent"}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{now: t0}
	db := memory.New().WithClock(clock.Now)

	hasher, err := security.NewPasswordHasher(security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})
	require.NoError(t, err)

	tokens := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret: strings.Repeat("k", 32),
		Issuer:       "cineid-test",
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   30 * 24 * time.Hour,
		RememberTTL:  90 * 24 * time.Hour,
	}).WithClock(clock.Now)

	events := &recordingPublisher{}
	log := zerolog.Nop()

	sessions := NewSessionStore(db.Sessions(), tokens, events, log).WithClock(clock.Now)
	creds := NewCredentialStore(db.Users(), hasher)
	auth := NewAuthService(creds, sessions, db.Users(), tokens, events, log).WithClock(clock.Now)
	avatars := &fakeAvatarStore{}

	return &testEnv{
		db:       db,
		clock:    clock,
		events:   events,
		tokens:   tokens,
		sessions: sessions,
		auth:     auth,
		creds:    creds,
		roles:    NewRoleAdmin(db.Roles(), db.Users(), log),
		resolver: NewRoleAuthority(db.Users()),
		avatars:  avatars,
		profile:  NewProfileService(db.Users(), avatars, 1024, log),
	}
}

func (e *testEnv) register(t *testing.T, email string) AuthResult {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: "correct horse",
		Name:     "Tester",
		Device:   device,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) login(t *testing.T, email string, remember bool) AuthResult {
	t.Helper()
	res, err := e.auth.Login(context.Background(), LoginInput{
		Email:    email,
		Password: "correct horse",
		Remember: remember,
		Device:   device,
	})
	require.NoError(t, err)
	return res
}
