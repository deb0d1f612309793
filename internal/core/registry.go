package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry holds the features feedreader was built with and drives their
// lifecycle: MigrateAll, then InitAll, then ShutdownAll. Disabled features
// stay registered so /features can report them, but are skipped otherwise.
type Registry struct {
	mu       sync.RWMutex
	features map[string]Feature
	logger   *Logger
}

func NewRegistry(logger *Logger) *Registry {
	return &Registry{
		features: make(map[string]Feature),
		logger:   logger,
	}
}

// Register fails when a feature with the same name is already present
func (r *Registry) Register(feature Feature) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := feature.Name()
	if _, exists := r.features[name]; exists {
		return NewFeatureError(name, "already registered", nil)
	}

	r.features[name] = feature
	r.logger.Info("Registered feature", "name", name, "enabled", feature.Enabled())
	return nil
}

// List returns every registered feature ordered by name
func (r *Registry) List() []Feature {
	r.mu.RLock()
	features := lo.Values(r.features)
	r.mu.RUnlock()

	sort.Slice(features, func(i, j int) bool {
		return features[i].Name() < features[j].Name()
	})
	return features
}

func (r *Registry) ListEnabled() []Feature {
	return lo.Filter(r.List(), func(f Feature, _ int) bool { return f.Enabled() })
}

// MigrateAll brings the schema of each enabled feature up to date
func (r *Registry) MigrateAll(ctx context.Context) error {
	for _, feature := range r.ListEnabled() {
		migrator, ok := feature.(Migrator)
		if !ok {
			continue
		}
		if err := migrator.Migrate(ctx); err != nil {
			return NewFeatureError(feature.Name(), "migration failed", err)
		}
	}
	return nil
}

// InitAll stops at the first feature that fails to start
func (r *Registry) InitAll(ctx context.Context) error {
	features := r.ListEnabled()
	r.logger.Info("Starting features", "count", len(features))

	for _, feature := range features {
		if err := feature.Init(ctx); err != nil {
			return NewFeatureError(feature.Name(), "initialization failed", err)
		}
	}
	return nil
}

// ShutdownAll stops every enabled feature, even after one fails, and
// returns the joined errors.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	var errs []error
	for _, feature := range r.ListEnabled() {
		if err := feature.Shutdown(ctx); err != nil {
			r.logger.Error("Failed to stop feature", "name", feature.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", feature.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// GetAllRoutes collects the routes of the enabled features
func (r *Registry) GetAllRoutes() []Route {
	return lo.FlatMap(r.ListEnabled(), func(f Feature, _ int) []Route { return f.Routes() })
}

// FeatureStatus is the /features view of one feature
type FeatureStatus struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// GetFeatureStatus reports every registered feature, enabled or not
func (r *Registry) GetFeatureStatus() map[string]FeatureStatus {
	return lo.SliceToMap(r.List(), func(f Feature) (string, FeatureStatus) {
		return f.Name(), FeatureStatus{Name: f.Name(), Description: f.Description(), Enabled: f.Enabled()}
	})
}
