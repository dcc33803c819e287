package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionState(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(time.Hour)}

	assert.Equal(t, SessionActive, s.State(now))
	assert.Equal(t, SessionActive, s.State(now.Add(time.Hour)))
	assert.Equal(t, SessionExpired, s.State(now.Add(time.Hour+time.Second)))

	revokedAt := now
	s.RevokedAt = &revokedAt
	assert.Equal(t, SessionRevoked, s.State(now))

	match := SessionMatch{Session: Session{ExpiresAt: now.Add(time.Hour)}, Superseded: true}
	assert.Equal(t, SessionRotated, match.State(now))
}

func TestRememberValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)
	s := Session{RememberTokenHash: []byte("h"), RememberExpiresAt: &until}

	assert.True(t, s.RememberValid(now))
	assert.False(t, s.RememberValid(until.Add(time.Second)))
	assert.False(t, Session{}.RememberValid(now))
}

func TestSecurityEventStreamValues(t *testing.T) {
	event := SecurityEvent{
		Type:       EventReuseDetected,
		UserID:     "u1",
		SessionID:  7,
		Detail:     map[string]string{"state": "rotated"},
		OccurredAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	values, err := event.StreamValues()
	require.NoError(t, err)
	assert.Equal(t, "session.reuse_detected", values["type"])

	decoded, err := DecodeSecurityEvent(values)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)

	_, err = DecodeSecurityEvent(map[string]any{"type": "x"})
	assert.Error(t, err)
}
