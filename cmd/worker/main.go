package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/cache"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/config"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/database"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/jobs"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/log"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/queue"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/repository"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.WithLevel(cfg.Environment, cfg.Worker.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	if err := cache.EnsureGroup(ctx, client, cfg.Events.Stream, cfg.Events.Group); err != nil {
		logger.Fatal().Err(err).Msg("create consumer group failed")
	}

	processor := tasks.NewProcessor(repository.NewEventRepository(dbPool), logger)
	consumer := queue.NewConsumer(client, queue.Options{
		Stream:        cfg.Events.Stream,
		Group:         cfg.Events.Group,
		Consumer:      cfg.Events.Consumer,
		ClaimInterval: cfg.Events.ClaimInterval,
	}, logger, processor)

	scheduler := jobs.NewScheduler(
		repository.NewSessionRepository(dbPool),
		cfg.Worker.PruneSchedule,
		cfg.Worker.SessionRetention,
		logger,
	)
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("scheduler start failed")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-scheduler.Stop().Done():
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("scheduled job still running at shutdown")
	}
	<-done
}
