package core

import (
	"context"
	"net/http"
)

// Feature is a self-contained part of feedreader: it owns its routes and
// background work, and can be switched off in configuration.
type Feature interface {
	Name() string
	Description() string
	Enabled() bool

	// Init runs once the schema is current, before the server accepts
	// requests. Work started here must stop in Shutdown.
	Init(ctx context.Context) error

	// Routes are mounted behind the server's auth group
	Routes() []Route

	Shutdown(ctx context.Context) error
}

// Migrator is implemented by features that keep tables in the database
type Migrator interface {
	Migrate(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Route binds a handler to a method and chi path pattern
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// BaseFeature carries the identity and logger a feature embeds; its Init,
// Routes and Shutdown do nothing beyond logging.
type BaseFeature struct {
	name        string
	description string
	enabled     bool
	logger      *Logger
}

func NewBaseFeature(name, description string, enabled bool, logger *Logger) *BaseFeature {
	return &BaseFeature{
		name:        name,
		description: description,
		enabled:     enabled,
		logger:      logger.ForFeature(name),
	}
}

func (f *BaseFeature) Name() string        { return f.name }
func (f *BaseFeature) Description() string { return f.description }
func (f *BaseFeature) Enabled() bool       { return f.enabled }

// Logger is tagged with feature=<name>
func (f *BaseFeature) Logger() *Logger {
	return f.logger
}

func (f *BaseFeature) Init(ctx context.Context) error {
	f.logger.Info("Feature starting")
	return nil
}

func (f *BaseFeature) Routes() []Route {
	return nil
}

func (f *BaseFeature) Shutdown(ctx context.Context) error {
	f.logger.Info("Feature stopped")
	return nil
}
