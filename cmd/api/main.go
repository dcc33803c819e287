package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/cache"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/config"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/database"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/handlers"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/log"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/security"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/server"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/service"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)
	if cfg.Security.GeneratedSecret {
		logger.Warn().Msg("security.accesssecret not set, using a per-process random secret; tokens will not survive a restart")
	}

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	hasher, err := security.NewPasswordHasher(security.Argon2Params{
		Time:    cfg.Security.Password.Time,
		Memory:  cfg.Security.Password.Memory,
		Threads: cfg.Security.Password.Threads,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init password hasher")
	}

	tokens := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret: cfg.Security.AccessSecret,
		Issuer:       cfg.Security.Issuer,
		AccessTTL:    cfg.Security.AccessTTL,
		RefreshTTL:   cfg.Security.RefreshTTL,
		RememberTTL:  cfg.Security.RememberTTL,
	})

	users := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	roleRepo := repository.NewRoleRepository(dbPool)
	events := service.NewRedisEventPublisher(redisClient, cfg.Events.Stream, logger)

	sessions := service.NewSessionStore(sessionRepo, tokens, events, logger)
	credentials := service.NewCredentialStore(users, hasher)

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Services{
		Auth:     service.NewAuthService(credentials, sessions, users, tokens, events, logger),
		Profile:  service.NewProfileService(users, objectStore, cfg.Storage.MaxAvatarSize, logger),
		Roles:    service.NewRoleAdmin(roleRepo, users, logger),
		Identity: service.NewRoleAuthority(users),
		Tokens:   tokens,
	}, dbPool, handlers.RedisPinger{Client: redisClient})

	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
