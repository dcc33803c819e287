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

const maxBulkRevoke = 100

// AuthService wires credentials, tokens and sessions into the flows exposed
// over HTTP.
type AuthService struct {
	credentials *CredentialStore
	sessions    *SessionStore
	users       UserStore
	tokens      *security.TokenIssuer
	events      EventPublisher
	log         zerolog.Logger
	now         Clock
}

func NewAuthService(
	credentials *CredentialStore,
	sessions *SessionStore,
	users UserStore,
	tokens *security.TokenIssuer,
	events EventPublisher,
	log zerolog.Logger,
) *AuthService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AuthService{
		credentials: credentials,
		sessions:    sessions,
		users:       users,
		tokens:      tokens,
		events:      events,
		log:         log,
		now:         time.Now,
	}
}

// WithClock propagates now to the session store and the token issuer.
func (s *AuthService) WithClock(now Clock) *AuthService {
	clone := *s
	clone.now = now
	clone.sessions = s.sessions.WithClock(now)
	clone.tokens = s.tokens.WithClock(now)
	return &clone
}

// AuthResult is what a successful flow hands back to the transport. Refresh
// and Remember are set when new cookies must be written.
type AuthResult struct {
	User            models.User
	AccessToken     string
	AccessExpiresAt time.Time
	Refresh         *security.Secret
	Remember        *security.Secret
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Device   DeviceInfo
}

type LoginInput struct {
	Email    string
	Password string
	Remember bool
	Device   DeviceInfo
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	user, err := s.credentials.Register(ctx, input.Email, input.Password, input.Name)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return s.openSession(ctx, user, input.Device, false)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	user, err := s.credentials.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.events.Publish(ctx, models.SecurityEvent{
				Type:       models.EventLoginFailed,
				IPAddress:  input.Device.IPAddress,
				Detail:     map[string]string{"user_agent": input.Device.UserAgent},
				OccurredAt: s.now(),
			})
		}
		return AuthResult{}, err
	}

	result, err := s.openSession(ctx, user, input.Device, input.Remember)
	if err != nil {
		return AuthResult{}, err
	}

	s.events.Publish(ctx, models.SecurityEvent{
		Type:       models.EventLoginSucceeded,
		UserID:     user.ID,
		IPAddress:  input.Device.IPAddress,
		Detail:     map[string]string{"user_agent": input.Device.UserAgent, "remember": fmt.Sprint(input.Remember)},
		OccurredAt: s.now(),
	})
	return result, nil
}

// Refresh rotates the refresh secret and mints a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshRaw string, device DeviceInfo) (AuthResult, error) {
	issued, err := s.sessions.Rotate(ctx, refreshRaw, device)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := s.sessionUser(ctx, issued.Session)
	if err != nil {
		return AuthResult{}, err
	}
	return s.result(user, issued)
}

// Remember logs in again from a remember secret and reissues both secrets.
func (s *AuthService) Remember(ctx context.Context, rememberRaw string, device DeviceInfo) (AuthResult, error) {
	issued, err := s.sessions.LoginWithRememberSecret(ctx, rememberRaw, device)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := s.sessionUser(ctx, issued.Session)
	if err != nil {
		return AuthResult{}, err
	}
	return s.result(user, issued)
}

// Logout revokes whatever sessions the presented secrets point at. Missing
// or unknown secrets are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshRaw, rememberRaw string) error {
	if err := s.sessions.RevokeByRefreshSecret(ctx, refreshRaw); err != nil {
		return err
	}
	return s.sessions.RevokeByRememberSecret(ctx, rememberRaw)
}

func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	return s.sessions.RevokeAll(ctx, userID)
}

func (s *AuthService) ListSessions(ctx context.Context, userID, currentRefreshRaw string) ([]SessionView, error) {
	return s.sessions.List(ctx, userID, currentRefreshRaw)
}

func (s *AuthService) RevokeSession(ctx context.Context, userID string, sessionID int64) error {
	return s.sessions.Revoke(ctx, sessionID, userID)
}

func (s *AuthService) BulkRevoke(ctx context.Context, userID string, sessionIDs []int64) (int64, error) {
	if len(sessionIDs) > maxBulkRevoke {
		return 0, invalid("at most %d ids per request", maxBulkRevoke)
	}
	return s.sessions.BulkRevoke(ctx, sessionIDs, userID)
}

// ChangePassword replaces the password, revokes every session of the user
// and opens a new one for the calling device.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string, device DeviceInfo) (AuthResult, error) {
	if err := s.credentials.ChangePassword(ctx, userID, current, next); err != nil {
		return AuthResult{}, err
	}

	revoked, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("revoke sessions after password change: %w", err)
	}

	s.log.Info().Str("user_id", userID).Int64("revoked", revoked).Msg("password changed")
	s.events.Publish(ctx, models.SecurityEvent{
		Type:       models.EventPasswordChange,
		UserID:     userID,
		IPAddress:  device.IPAddress,
		OccurredAt: s.now(),
	})

	user, err := s.Me(ctx, userID)
	if err != nil {
		return AuthResult{}, err
	}
	return s.openSession(ctx, user, device, false)
}

func (s *AuthService) Me(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// AdminRevokeAll revokes every session of another user.
func (s *AuthService) AdminRevokeAll(ctx context.Context, actorID, userID string) (int64, error) {
	if _, err := s.Me(ctx, userID); err != nil {
		return 0, err
	}
	count, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("actor_id", actorID).Str("user_id", userID).Int64("revoked", count).Msg("sessions revoked by admin")
	return count, nil
}

// openSession writes a new session and signs its access token. If signing
// fails the session is revoked again so no usable secret is left behind.
func (s *AuthService) openSession(ctx context.Context, user models.User, device DeviceInfo, remember bool) (AuthResult, error) {
	issued, err := s.sessions.Create(ctx, user.ID, device, remember)
	if err != nil {
		return AuthResult{}, err
	}

	result, err := s.result(user, issued)
	if err != nil {
		if revokeErr := s.sessions.Revoke(ctx, issued.Session.ID, user.ID); revokeErr != nil {
			s.log.Error().Err(revokeErr).Int64("session_id", issued.Session.ID).Msg("revoke orphaned session failed")
		}
		return AuthResult{}, err
	}
	return result, nil
}

func (s *AuthService) result(user models.User, issued IssuedSession) (AuthResult, error) {
	accessToken, accessExpiresAt, err := s.tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return AuthResult{}, err
	}
	refresh := issued.Refresh
	return AuthResult{
		User:            user,
		AccessToken:     accessToken,
		AccessExpiresAt: accessExpiresAt,
		Refresh:         &refresh,
		Remember:        issued.Remember,
	}, nil
}

func (s *AuthService) sessionUser(ctx context.Context, session models.Session) (models.User, error) {
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, err
	}
	return user, nil
}
