package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secretBytes = 32

var ErrInvalidAccessToken = errors.New("invalid access token")

// AccessClaims deliberately carry no role or permission data; authorization
// is resolved from storage on every request.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Secret is an opaque credential. Raw is handed to the client exactly once;
// only Hash is persisted.
type Secret struct {
	Raw       string
	Hash      []byte
	ExpiresAt time.Time
}

type TokenConfig struct {
	AccessSecret string
	Issuer       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	RememberTTL  time.Duration
}

type TokenIssuer struct {
	secret      []byte
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:      []byte(cfg.AccessSecret),
		issuer:      cfg.Issuer,
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		rememberTTL: cfg.RememberTTL,
		now:         time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *t
	clone.now = now
	return &clone
}

func (t *TokenIssuer) IssueAccessToken(userID, email string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.accessTTL)
	claims := AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, expiresAt, nil
}

func (t *TokenIssuer) ParseAccessToken(tokenStr string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

func (t *TokenIssuer) NewRefreshSecret() (Secret, error) {
	return t.newSecret(t.refreshTTL)
}

func (t *TokenIssuer) NewRememberSecret() (Secret, error) {
	return t.newSecret(t.rememberTTL)
}

func (t *TokenIssuer) newSecret(ttl time.Duration) (Secret, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return Secret{}, fmt.Errorf("generate secret: %w", err)
	}

	raw := base64.RawURLEncoding.EncodeToString(buf)
	return Secret{
		Raw:       raw,
		Hash:      HashSecret(raw),
		ExpiresAt: t.now().Add(ttl),
	}, nil
}

func HashSecret(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}

// SecretHashEqual compares the hash of raw with stored in constant time.
func SecretHashEqual(raw string, stored []byte) bool {
	return subtle.ConstantTimeCompare(HashSecret(raw), stored) == 1
}
