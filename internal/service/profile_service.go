package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/rs/zerolog"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/ids"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/media/sniffer"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/media/svg"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
)

const DefaultMaxAvatarSize = 2 << 20

type AvatarInput struct {
	UserID       string
	File         io.Reader
	DeclaredType string
}

type ProfileService struct {
	users   UserStore
	store   AvatarStore
	maxSize int64
	log     zerolog.Logger
}

func NewProfileService(users UserStore, store AvatarStore, maxSize int64, log zerolog.Logger) *ProfileService {
	if maxSize <= 0 {
		maxSize = DefaultMaxAvatarSize
	}
	return &ProfileService{users: users, store: store, maxSize: maxSize, log: log}
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID, name string) (models.User, error) {
	name, err := normalizeName(name)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.UpdateProfile(ctx, userID, name)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// UploadAvatar checks the content against its declared type, scrubs SVG
// documents, stores the object and points the user at it.
func (s *ProfileService) UploadAvatar(ctx context.Context, input AvatarInput) (models.User, error) {
	if s.store == nil {
		return models.User{}, errors.New("avatar storage is not configured")
	}
	if input.File == nil {
		return models.User{}, invalid("file is required")
	}

	data, err := io.ReadAll(io.LimitReader(input.File, s.maxSize+1))
	if err != nil {
		return models.User{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return models.User{}, invalid("file is empty")
	}
	if int64(len(data)) > s.maxSize {
		return models.User{}, invalid("file exceeds %d bytes", s.maxSize)
	}

	result, err := sniffer.Sniff(data)
	if err != nil {
		return models.User{}, invalid("unsupported image type")
	}
	if !result.Accepts(input.DeclaredType) {
		return models.User{}, invalid("content type mismatch: declared %s, actual %s",
			sniffer.NormalizeMIME(input.DeclaredType), result.MIME)
	}

	if result.Type == sniffer.TypeSVG {
		clean, err := svg.Sanitize(data)
		if err != nil {
			return models.User{}, invalid("invalid svg document")
		}
		data = clean
	}

	current, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}

	key := path.Join("users", input.UserID, fmt.Sprintf("%s.%s", ids.New(), result.Ext))
	url, err := s.store.PutAvatar(ctx, key, bytes.NewReader(data), int64(len(data)), result.MIME)
	if err != nil {
		return models.User{}, fmt.Errorf("store avatar: %w", err)
	}

	user, err := s.users.UpdateAvatar(ctx, input.UserID, url)
	if err != nil {
		return models.User{}, err
	}

	if current.AvatarURL != nil && *current.AvatarURL != url {
		if err := s.store.RemoveAvatar(ctx, *current.AvatarURL); err != nil {
			s.log.Warn().Err(err).Str("user_id", input.UserID).Msg("remove previous avatar failed")
		}
	}
	return user, nil
}
