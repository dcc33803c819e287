package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/security"
)

// DeviceInfo describes the client a session is opened for.
type DeviceInfo struct {
	IPAddress string
	UserAgent string
}

// IssuedSession carries the raw secrets of a freshly written session. The
// raw values exist only here; storage keeps hashes.
type IssuedSession struct {
	Session  models.Session
	Refresh  security.Secret
	Remember *security.Secret
}

type SessionView struct {
	Session models.Session
	Current bool
}

// SessionStore runs the session lifecycle: create, rotate with reuse
// detection, remember-login and the revoke family.
type SessionStore struct {
	repo   SessionRepository
	tokens *security.TokenIssuer
	events EventPublisher
	log    zerolog.Logger
	now    Clock
}

func NewSessionStore(repo SessionRepository, tokens *security.TokenIssuer, events EventPublisher, log zerolog.Logger) *SessionStore {
	if events == nil {
		events = NopPublisher{}
	}
	return &SessionStore{
		repo:   repo,
		tokens: tokens,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// WithClock makes the store and its token issuer read time from now.
func (s *SessionStore) WithClock(now Clock) *SessionStore {
	clone := *s
	clone.now = now
	clone.tokens = s.tokens.WithClock(now)
	return &clone
}

func (s *SessionStore) Create(ctx context.Context, userID string, device DeviceInfo, remember bool) (IssuedSession, error) {
	refresh, err := s.tokens.NewRefreshSecret()
	if err != nil {
		return IssuedSession{}, err
	}

	now := s.now()
	session := models.Session{
		UserID:           userID,
		RefreshTokenHash: refresh.Hash,
		IPAddress:        device.IPAddress,
		UserAgent:        device.UserAgent,
		CreatedAt:        now,
		ExpiresAt:        refresh.ExpiresAt,
	}

	var rememberSecret *security.Secret
	if remember {
		secret, err := s.tokens.NewRememberSecret()
		if err != nil {
			return IssuedSession{}, err
		}
		rememberSecret = &secret
		session.RememberTokenHash = secret.Hash
		session.RememberExpiresAt = &secret.ExpiresAt
	}

	created, err := s.repo.Create(ctx, session)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("create session: %w", err)
	}
	return IssuedSession{Session: created, Refresh: refresh, Remember: rememberSecret}, nil
}

// Rotate exchanges a refresh secret for a new one. Presenting a secret whose
// session is not active, or losing the swap to a concurrent caller, revokes
// the session and fails with ErrInvalidToken. The one exception is an expired
// session that can still be resumed through its remember secret.
func (s *SessionStore) Rotate(ctx context.Context, raw string, device DeviceInfo) (IssuedSession, error) {
	if raw == "" {
		return IssuedSession{}, ErrInvalidToken
	}

	hash := security.HashSecret(raw)
	match, err := s.repo.FindByRefreshHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return IssuedSession{}, ErrInvalidToken
		}
		return IssuedSession{}, err
	}
	if !security.SecretHashEqual(raw, match.MatchedHash) {
		return IssuedSession{}, ErrInvalidToken
	}

	now := s.now()
	if state := match.State(now); state != models.SessionActive {
		s.contain(ctx, match.Session, state, device)
		return IssuedSession{}, ErrInvalidToken
	}

	next, err := s.tokens.NewRefreshSecret()
	if err != nil {
		return IssuedSession{}, err
	}

	updated, err := s.repo.Rotate(ctx, models.Rotation{
		SessionID: match.Session.ID,
		OldHash:   hash,
		NewHash:   next.Hash,
		Now:       now,
		ExpiresAt: next.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, repository.ErrRotationConflict) {
			s.contain(ctx, match.Session, models.SessionRotated, device)
			return IssuedSession{}, ErrInvalidToken
		}
		return IssuedSession{}, fmt.Errorf("rotate session: %w", err)
	}

	return IssuedSession{Session: updated, Refresh: next}, nil
}

// contain revokes a session whose refresh secret was presented in an
// unusable state. An expired session with a live remember secret keeps its
// row: the refresh half is already dead since Rotate never extends an
// expired session, and the remember half must stay redeemable.
func (s *SessionStore) contain(ctx context.Context, session models.Session, state models.SessionState, device DeviceInfo) {
	now := s.now()
	keep := state == models.SessionExpired && session.RememberValid(now)
	if session.RevokedAt == nil && !keep {
		if err := s.repo.Revoke(ctx, session.ID, now); err != nil {
			s.log.Error().Err(err).Int64("session_id", session.ID).Msg("revoke after reuse signal failed")
		}
	}

	if state != models.SessionRotated {
		s.log.Debug().
			Int64("session_id", session.ID).
			Str("state", string(state)).
			Msg("refresh with unusable session")
		return
	}

	s.log.Warn().
		Str("user_id", session.UserID).
		Int64("session_id", session.ID).
		Str("ip", device.IPAddress).
		Msg("refresh secret reuse detected, session revoked")

	s.events.Publish(ctx, models.SecurityEvent{
		Type:       models.EventReuseDetected,
		UserID:     session.UserID,
		SessionID:  session.ID,
		IPAddress:  device.IPAddress,
		Detail:     map[string]string{"user_agent": device.UserAgent},
		OccurredAt: now,
	})
}

// LoginWithRememberSecret consumes a remember secret: the old session is
// revoked and a new one is opened with fresh refresh and remember secrets.
func (s *SessionStore) LoginWithRememberSecret(ctx context.Context, raw string, device DeviceInfo) (IssuedSession, error) {
	if raw == "" {
		return IssuedSession{}, ErrInvalidToken
	}

	hash := security.HashSecret(raw)
	old, err := s.repo.FindByRememberHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return IssuedSession{}, ErrInvalidToken
		}
		return IssuedSession{}, err
	}

	now := s.now()
	if !security.SecretHashEqual(raw, old.RememberTokenHash) || !old.RememberValid(now) {
		return IssuedSession{}, ErrInvalidToken
	}

	refresh, err := s.tokens.NewRefreshSecret()
	if err != nil {
		return IssuedSession{}, err
	}
	remember, err := s.tokens.NewRememberSecret()
	if err != nil {
		return IssuedSession{}, err
	}

	next := models.Session{
		UserID:            old.UserID,
		RefreshTokenHash:  refresh.Hash,
		RememberTokenHash: remember.Hash,
		RememberExpiresAt: &remember.ExpiresAt,
		IPAddress:         device.IPAddress,
		UserAgent:         device.UserAgent,
		CreatedAt:         now,
		ExpiresAt:         refresh.ExpiresAt,
	}

	created, err := s.repo.ReplaceRemembered(ctx, old.ID, hash, next, now)
	if err != nil {
		if errors.Is(err, repository.ErrRotationConflict) {
			return IssuedSession{}, ErrInvalidToken
		}
		return IssuedSession{}, fmt.Errorf("replace remembered session: %w", err)
	}

	return IssuedSession{Session: created, Refresh: refresh, Remember: &remember}, nil
}

// Revoke is a no-op for sessions that do not belong to byUserID.
func (s *SessionStore) Revoke(ctx context.Context, sessionID int64, byUserID string) error {
	_, err := s.repo.RevokeOwned(ctx, []int64{sessionID}, byUserID, s.now())
	return err
}

// BulkRevoke revokes the listed sessions owned by byUserID and skips the
// rest. It returns how many were revoked.
func (s *SessionStore) BulkRevoke(ctx context.Context, sessionIDs []int64, byUserID string) (int64, error) {
	return s.repo.RevokeOwned(ctx, dedupe(sessionIDs), byUserID, s.now())
}

func (s *SessionStore) RevokeAll(ctx context.Context, userID string) (int64, error) {
	now := s.now()
	count, err := s.repo.RevokeAllByUser(ctx, userID, now)
	if err != nil {
		return 0, err
	}

	s.log.Info().Str("user_id", userID).Int64("revoked", count).Msg("revoked all sessions")
	s.events.Publish(ctx, models.SecurityEvent{
		Type:       models.EventRevokedAll,
		UserID:     userID,
		Detail:     map[string]string{"revoked": fmt.Sprint(count)},
		OccurredAt: now,
	})
	return count, nil
}

// List returns the user's usable sessions, most recently active first, with
// the one behind currentRaw (if any) moved to the front.
func (s *SessionStore) List(ctx context.Context, userID, currentRaw string) ([]SessionView, error) {
	sessions, err := s.repo.ListByUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	var currentID int64
	if id, ok := s.ResolveCurrent(ctx, currentRaw); ok {
		currentID = id
	}

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		view := SessionView{Session: session, Current: session.ID == currentID && session.UserID == userID}
		if view.Current {
			views = append([]SessionView{view}, views...)
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// ResolveCurrent maps a refresh secret to its session id without changing
// any state. Superseded secrets do not resolve.
func (s *SessionStore) ResolveCurrent(ctx context.Context, raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	match, err := s.repo.FindByRefreshHash(ctx, security.HashSecret(raw))
	if err != nil || match.Superseded {
		return 0, false
	}
	return match.Session.ID, true
}

func (s *SessionStore) RevokeByRefreshSecret(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	match, err := s.repo.FindByRefreshHash(ctx, security.HashSecret(raw))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return s.repo.Revoke(ctx, match.Session.ID, s.now())
}

func (s *SessionStore) RevokeByRememberSecret(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	session, err := s.repo.FindByRememberHash(ctx, security.HashSecret(raw))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return s.repo.Revoke(ctx, session.ID, s.now())
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
