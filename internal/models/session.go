package models

import "time"

type SessionState string

const (
	SessionActive  SessionState = "active"
	SessionRotated SessionState = "rotated"
	SessionRevoked SessionState = "revoked"
	SessionExpired SessionState = "expired"
)

type Session struct {
	ID                int64
	UserID            string
	RefreshTokenHash  []byte
	RememberTokenHash []byte
	RememberExpiresAt *time.Time
	IPAddress         string
	UserAgent         string
	CreatedAt         time.Time
	LastActivityAt    time.Time
	ExpiresAt         time.Time
	RevokedAt         *time.Time
}

// State derives the lifecycle state at now. Expiry is never stored.
func (s Session) State(now time.Time) SessionState {
	if s.RevokedAt != nil {
		return SessionRevoked
	}
	if now.After(s.ExpiresAt) {
		return SessionExpired
	}
	return SessionActive
}

// RememberValid reports whether the remember secret on s can still be used.
func (s Session) RememberValid(now time.Time) bool {
	if s.RevokedAt != nil || len(s.RememberTokenHash) == 0 || s.RememberExpiresAt == nil {
		return false
	}
	return !now.After(*s.RememberExpiresAt)
}

// SessionMatch is the result of looking a refresh hash up. Superseded is set
// when the hash belongs to a secret that was already rotated away.
type SessionMatch struct {
	Session     Session
	MatchedHash []byte
	Superseded  bool
}

func (m SessionMatch) State(now time.Time) SessionState {
	if m.Session.RevokedAt != nil {
		return SessionRevoked
	}
	if m.Superseded {
		return SessionRotated
	}
	return m.Session.State(now)
}

// Rotation describes a compare-and-swap of a session's refresh hash.
type Rotation struct {
	SessionID int64
	OldHash   []byte
	NewHash   []byte
	Now       time.Time
	ExpiresAt time.Time
}
