package security

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer(TokenConfig{
		AccessSecret: "0123456789abcdef0123456789abcdef",
		Issuer:       "cineid-test",
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   30 * 24 * time.Hour,
		RememberTTL:  90 * 24 * time.Hour,
	})
}

func TestIssueAccessToken_CarriesOnlyIdentity(t *testing.T) {
	issuer := testIssuer()

	token, expiresAt, err := issuer.IssueAccessToken("user-1", "a@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, "user-1", raw["sub"])
	assert.Equal(t, "a@example.com", raw["email"])
	assert.NotContains(t, raw, "role")
	assert.NotContains(t, raw, "permissions")

	claims, err := issuer.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestParseAccessToken_RejectsTampering(t *testing.T) {
	issuer := testIssuer()
	token, _, err := issuer.IssueAccessToken("user-1", "a@example.com")
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = issuer.ParseAccessToken(tampered)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	other := NewTokenIssuer(TokenConfig{AccessSecret: "another-secret-another-secret-xx", Issuer: "cineid-test", AccessTTL: time.Minute})
	_, err = other.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestParseAccessToken_RejectsExpired(t *testing.T) {
	start := time.Now()
	issuer := testIssuer().WithClock(func() time.Time { return start })
	token, _, err := issuer.IssueAccessToken("user-1", "a@example.com")
	require.NoError(t, err)

	later := issuer.WithClock(func() time.Time { return start.Add(16 * time.Minute) })
	_, err = later.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestParseAccessToken_RejectsOtherAlgorithms(t *testing.T) {
	issuer := testIssuer()
	claims := AccessClaims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "cineid-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	_, err = issuer.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestNewSecrets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := testIssuer().WithClock(func() time.Time { return now })

	refresh, err := issuer.NewRefreshSecret()
	require.NoError(t, err)
	remember, err := issuer.NewRememberSecret()
	require.NoError(t, err)

	assert.NotEqual(t, refresh.Raw, remember.Raw)
	assert.Equal(t, now.Add(30*24*time.Hour), refresh.ExpiresAt)
	assert.Equal(t, now.Add(90*24*time.Hour), remember.ExpiresAt)
	assert.Equal(t, HashSecret(refresh.Raw), refresh.Hash)
	assert.NotContains(t, string(refresh.Hash), refresh.Raw)

	assert.True(t, SecretHashEqual(refresh.Raw, refresh.Hash))
	assert.False(t, SecretHashEqual(remember.Raw, refresh.Hash))
}
