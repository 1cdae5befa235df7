// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/greenkube/greenkube-agent/app/build"
	"github.com/greenkube/greenkube-agent/app/config"
	"github.com/greenkube/greenkube-agent/app/data"
	"github.com/greenkube/greenkube-agent/app/domain"
	"github.com/greenkube/greenkube-agent/app/exporters"
	"github.com/greenkube/greenkube-agent/app/logging"
	"github.com/greenkube/greenkube-agent/app/sources"
	"github.com/greenkube/greenkube-agent/app/storage/memory"
	"github.com/greenkube/greenkube-agent/app/storage/postgres"
	"github.com/greenkube/greenkube-agent/app/storage/repo"
	"github.com/greenkube/greenkube-agent/app/storage/sqlite"
	"github.com/greenkube/greenkube-agent/app/types"
)

func main() {
	settings, err := config.NewSettings(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load settings")
	}

	logger, err := logging.NewLogger(
		logging.WithLevel(settings.Logging.Level),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create the logger")
	}
	ctx := logger.WithContext(context.Background())

	logger.Info().
		Str("version", build.GetVersion()).
		Str("cluster", settings.ClusterName).
		Str("driver", settings.Database.Driver).
		Msg("starting")

	clock := types.UTCClock{}
	metricStore, nodeStore, intensityStore, err := buildStores(settings, clock)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	catalog, err := data.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load reference datasets")
	}

	processor := domain.NewProcessor(
		settings,
		clock,
		catalog,
		sources.NewFactory(settings.Sources.Dir),
		domain.NewBasicEstimator(catalog, settings.Defaults, settings.Processing.SampleStep),
		sources.NewFileIntensityProvider(settings.Sources.Dir),
		nodeStore,
		metricStore,
		intensityStore,
		domain.NewRecommender(settings.Recommender),
	)

	var sinks []types.ReportSink
	if settings.Export.Dir != "" {
		sinks, err = exporters.ForFormats(settings.Export.Dir, settings.Export.Formats)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure report exporters")
		}
	}

	poller := domain.NewPoller(ctx, settings, clock, processor, sinks...)
	if err := poller.Run(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start poller")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	logger.Info().Str("signal", received.String()).Msg("shutting down")

	if err := poller.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
}

func buildStores(settings *config.Settings, clock types.TimeProvider) (types.MetricStore, types.NodeStore, types.IntensityStore, error) {
	if settings.Database.Driver == "memory" {
		return memory.NewMetricStore(clock), memory.NewNodeStore(clock), memory.NewIntensityStore(clock), nil
	}

	var db *gorm.DB
	var err error
	switch settings.Database.Driver {
	case "postgres":
		db, err = postgres.NewDriver(settings.Database.DSN)
	default:
		db, err = sqlite.NewDriver(settings.Database.DSN)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	retry := repo.RetryPolicy{
		MaxRetries: settings.Database.MaxRetries,
		Backoff:    settings.Database.RetryBackoff,
	}
	metricStore, err := repo.NewMetricRepository(clock, db, retry)
	if err != nil {
		return nil, nil, nil, err
	}
	nodeStore, err := repo.NewNodeRepository(clock, db)
	if err != nil {
		return nil, nil, nil, err
	}
	intensityStore, err := repo.NewIntensityRepository(clock, db)
	if err != nil {
		return nil, nil, nil, err
	}
	return metricStore, nodeStore, intensityStore, nil
}
