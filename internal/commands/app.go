package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"feedreader/internal/core"
	"feedreader/internal/features/reader"
	"feedreader/internal/features/reader/migrations"
)

// app holds what every command needs: configuration, logging, the
// database and the registered features
type app struct {
	config   *core.Config
	logger   *core.Logger
	db       *core.Database
	registry *core.Registry
	reader   *reader.Feature
}

func bootstrap(ctx *cli.Context) (*app, error) {
	config, err := core.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if path := ctx.String("database"); path != "" {
		config.Database.Path = path
	}

	readerConfig := reader.NewConfig(config)
	if err := readerConfig.Validate(); err != nil {
		return nil, err
	}

	logger := core.NewLoggerWithOptions(os.Stderr, config.Log)

	db, err := core.OpenSQLite(config.Database.Path, logger)
	if err != nil {
		return nil, err
	}

	registry := core.NewRegistry(logger)
	feature := reader.NewFeature(logger, db, readerConfig)
	if err := registry.Register(feature); err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		config:   config,
		logger:   logger,
		db:       db,
		registry: registry,
		reader:   feature,
	}, nil
}

// migrated makes sure the schema is current before a command touches it
func (a *app) migrated(ctx context.Context) error {
	return a.registry.MigrateAll(ctx)
}

// requireReader refuses commands that need the reader when it is switched off
func (a *app) requireReader() error {
	if !a.config.IsFeatureEnabled(migrations.FeatureName) {
		return core.NewConfigurationError("reader feature is disabled", nil)
	}
	return nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
