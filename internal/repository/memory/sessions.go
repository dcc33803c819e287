package memory

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
)

type SessionRepository struct {
	db *DB
}

func (r *SessionRepository) Create(_ context.Context, session models.Session) (models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.insert(session), nil
}

func (r *SessionRepository) GetByID(_ context.Context, id int64) (models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	session, ok := r.db.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (r *SessionRepository) FindByRefreshHash(_ context.Context, hash []byte) (models.SessionMatch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, session := range r.db.sessions {
		if bytes.Equal(session.RefreshTokenHash, hash) {
			return models.SessionMatch{Session: session, MatchedHash: session.RefreshTokenHash}, nil
		}
	}
	if id, ok := r.db.rotated[string(hash)]; ok {
		if session, ok := r.db.sessions[id]; ok {
			return models.SessionMatch{Session: session, MatchedHash: hash, Superseded: true}, nil
		}
	}
	return models.SessionMatch{}, repository.ErrSessionNotFound
}

func (r *SessionRepository) FindByRememberHash(_ context.Context, hash []byte) (models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, session := range r.db.sessions {
		if len(session.RememberTokenHash) > 0 && bytes.Equal(session.RememberTokenHash, hash) {
			return session, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (r *SessionRepository) Rotate(_ context.Context, rot models.Rotation) (models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	session, ok := r.db.sessions[rot.SessionID]
	if !ok ||
		!bytes.Equal(session.RefreshTokenHash, rot.OldHash) ||
		session.RevokedAt != nil ||
		session.ExpiresAt.Before(rot.Now) {
		return models.Session{}, repository.ErrRotationConflict
	}

	session.RefreshTokenHash = rot.NewHash
	session.LastActivityAt = rot.Now
	session.ExpiresAt = rot.ExpiresAt
	r.db.sessions[session.ID] = session
	if _, seen := r.db.rotated[string(rot.OldHash)]; !seen {
		r.db.rotated[string(rot.OldHash)] = session.ID
	}
	return session, nil
}

func (r *SessionRepository) ReplaceRemembered(_ context.Context, oldID int64, oldHash []byte, next models.Session, now time.Time) (models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	old, ok := r.db.sessions[oldID]
	if !ok ||
		len(old.RememberTokenHash) == 0 ||
		!bytes.Equal(old.RememberTokenHash, oldHash) ||
		old.RevokedAt != nil ||
		old.RememberExpiresAt == nil ||
		old.RememberExpiresAt.Before(now) {
		return models.Session{}, repository.ErrRotationConflict
	}

	old.RememberTokenHash = nil
	old.RememberExpiresAt = nil
	revokedAt := now
	old.RevokedAt = &revokedAt
	r.db.sessions[oldID] = old

	return r.insert(next), nil
}

func (r *SessionRepository) Revoke(_ context.Context, id int64, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if session, ok := r.db.sessions[id]; ok && session.RevokedAt == nil {
		session.RevokedAt = &now
		r.db.sessions[id] = session
	}
	return nil
}

func (r *SessionRepository) RevokeOwned(_ context.Context, ids []int64, userID string, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var count int64
	for _, id := range ids {
		session, ok := r.db.sessions[id]
		if !ok || session.UserID != userID || session.RevokedAt != nil {
			continue
		}
		revokedAt := now
		session.RevokedAt = &revokedAt
		r.db.sessions[id] = session
		count++
	}
	return count, nil
}

func (r *SessionRepository) RevokeAllByUser(_ context.Context, userID string, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var count int64
	for id, session := range r.db.sessions {
		if session.UserID != userID || session.RevokedAt != nil {
			continue
		}
		revokedAt := now
		session.RevokedAt = &revokedAt
		r.db.sessions[id] = session
		count++
	}
	return count, nil
}

func (r *SessionRepository) ListByUser(_ context.Context, userID string, now time.Time) ([]models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var sessions []models.Session
	for _, session := range r.db.sessions {
		if session.UserID != userID || session.RevokedAt != nil {
			continue
		}
		live := !session.ExpiresAt.Before(now)
		remembered := session.RememberExpiresAt != nil && !session.RememberExpiresAt.Before(now)
		if live || remembered {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].LastActivityAt.Equal(sessions[j].LastActivityAt) {
			return sessions[i].LastActivityAt.After(sessions[j].LastActivityAt)
		}
		return sessions[i].ID > sessions[j].ID
	})
	return sessions, nil
}

func (r *SessionRepository) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var count int64
	for id, session := range r.db.sessions {
		revoked := session.RevokedAt != nil && session.RevokedAt.Before(cutoff)
		expired := session.ExpiresAt.Before(cutoff) &&
			(session.RememberExpiresAt == nil || session.RememberExpiresAt.Before(cutoff))
		if !revoked && !expired {
			continue
		}
		delete(r.db.sessions, id)
		for hash, sessionID := range r.db.rotated {
			if sessionID == id {
				delete(r.db.rotated, hash)
			}
		}
		count++
	}
	return count, nil
}

// insert requires db.mu to be held.
func (r *SessionRepository) insert(session models.Session) models.Session {
	r.db.nextSession++
	session.ID = r.db.nextSession
	session.LastActivityAt = session.CreatedAt
	session.RevokedAt = nil
	if len(session.RememberTokenHash) == 0 {
		session.RememberTokenHash = nil
	}
	r.db.sessions[session.ID] = session
	return session
}
