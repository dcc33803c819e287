package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/ids"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/security"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
	maxNameLength     = 100
	maxEmailLength    = 254
)

// CredentialStore owns password hashes: registration, verification and
// password changes.
type CredentialStore struct {
	users  UserStore
	hasher *security.PasswordHasher
}

func NewCredentialStore(users UserStore, hasher *security.PasswordHasher) *CredentialStore {
	return &CredentialStore{users: users, hasher: hasher}
}

func (c *CredentialStore) Register(ctx context.Context, email, password, name string) (models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return models.User{}, err
	}
	name, err = normalizeName(name)
	if err != nil {
		return models.User{}, err
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := c.users.Create(ctx, models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  name,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return models.User{}, err
	}
	return user, nil
}

// Authenticate returns ErrInvalidCredentials for an unknown email and for a
// wrong password alike, and spends the same hashing work on both paths.
func (c *CredentialStore) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := c.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.hasher.VerifyDummy(password)
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	ok, err := c.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (c *CredentialStore) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	ok, err := c.hasher.Verify(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	if next == current {
		return invalid("new password must differ from the current one")
	}

	hash, err := c.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := c.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > maxEmailLength {
		return "", invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email is not a valid address")
	}
	return email, nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		return invalid("password must be between %d and %d characters", minPasswordLength, maxPasswordLength)
	}
	return nil
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > maxNameLength {
		return "", invalid("name must be between 1 and %d characters", maxNameLength)
	}
	return name, nil
}
