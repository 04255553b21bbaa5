package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockLens/internal/config"
	"StockLens/internal/dashboard"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	if err := config.LoadDotEnv(""); err != nil {
		logger.Error().Err(err).Msg("load .env")
		return 1
	}
	cfg, err := config.Load(config.Path())
	if err != nil {
		logger.Error().Err(err).Msg("load config")
		return 1
	}
	if err := cfg.ApplyFlags(os.Args[1:]); err != nil {
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation:\n%v\n", err)
		return 1
	}

	level, _ := cfg.LogLevel()
	logger = logger.Level(level)
	if logger.GetLevel() <= zerolog.DebugLevel {
		logger.Debug().Msgf("effective config:\n%s", spew.Sdump(cfg))
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := dashboard.OpenRecorder(cfg, &logger)
	defer rec.Close()

	fetcher := dashboard.NewFetcher(cfg, &logger)
	logger.Info().Str("source", fetcher.Name()).Msg("StockLens starting")

	err = dashboard.Run(ctx, cfg, dashboard.Deps{
		Fetcher:  fetcher,
		Recorder: rec,
		Out:      os.Stdout,
		Logger:   &logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		return 1
	}
	logger.Info().Msg("StockLens stopped")
	return 0
}
