package main

import (
	"context"
	"strings"
	"time"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/config"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/database"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/ids"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/log"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/security"
)

// seed creates the root account, or resets its password and name when it
// already exists. It is the only code path that sets is_root.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := log.New(cfg.Environment)

	if cfg.Seed.RootEmail == "" || len(cfg.Seed.RootPassword) < 8 {
		logger.Fatal().Msg("seed.rootemail and a seed.rootpassword of at least 8 characters are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	hasher, err := security.NewPasswordHasher(security.Argon2Params{
		Time:    cfg.Security.Password.Time,
		Memory:  cfg.Security.Password.Memory,
		Threads: cfg.Security.Password.Threads,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init password hasher")
	}
	hash, err := hasher.Hash(cfg.Seed.RootPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("hash root password")
	}

	root, err := repository.NewUserRepository(pool).UpsertRoot(ctx, models.User{
		ID:           ids.New(),
		Email:        strings.ToLower(strings.TrimSpace(cfg.Seed.RootEmail)),
		PasswordHash: hash,
		DisplayName:  cfg.Seed.RootName,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("upsert root account")
	}
	logger.Info().Str("user_id", root.ID).Str("email", root.Email).Msg("root account ready")
}
