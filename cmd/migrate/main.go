package main

import (
	"errors"
	"flag"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/config"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/database"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/log"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := log.New(cfg.Environment)

	if err := database.Migrate(cfg.Postgres.DSN, *direction); err != nil {
		if errors.Is(err, database.ErrNoChange) {
			logger.Info().Str("direction", *direction).Msg("schema already current")
			return
		}
		logger.Fatal().Err(err).Str("direction", *direction).Msg("migration failed")
	}
	logger.Info().Str("direction", *direction).Msg("migrations applied")
}
