package reader

import (
	"context"
	"fmt"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/handlers"
	"feedreader/internal/features/reader/migrations"
	"feedreader/internal/features/reader/services"
	"feedreader/internal/features/reader/store"
)

const (
	fetchJobName = "fetch-feeds"
	purgeJobName = "purge-read"
)

// Feature represents the feed reader feature
type Feature struct {
	*core.BaseFeature
	config           *Config
	migrationMgr     *migrations.Manager
	store            *store.SQLStore
	feedService      *services.FeedService
	articleService   *services.ArticleService
	fetcherService   *services.FetcherService
	ingestService    *services.IngestService
	refresher        *services.Refresher
	schedulerService *services.SchedulerService
	handlers         *handlers.Handlers
}

// NewFeature creates a new reader feature
func NewFeature(logger *core.Logger, db *core.Database, config *Config) *Feature {
	base := core.NewBaseFeature(migrations.FeatureName, "Personal feed reader", config.Enabled, logger)
	featureLogger := base.Logger()

	st := store.NewSQLStore(db)

	locks := services.NewFeedLocks()

	feedService := services.NewFeedService(st, featureLogger, locks, config.RemoveCascade)
	articleService := services.NewArticleService(st, featureLogger, config.PurgeKeepStarred)
	fetcherService := services.NewFetcherService(featureLogger, config.FetcherConfig())
	ingestService := services.NewIngestService(st, featureLogger, locks)
	refresher := services.NewRefresher(feedService, fetcherService, ingestService, featureLogger)

	return &Feature{
		BaseFeature:      base,
		config:           config,
		migrationMgr:     migrations.NewManager(db, featureLogger),
		store:            st,
		feedService:      feedService,
		articleService:   articleService,
		fetcherService:   fetcherService,
		ingestService:    ingestService,
		refresher:        refresher,
		schedulerService: services.NewSchedulerService(featureLogger),
		handlers:         handlers.NewHandlers(featureLogger, feedService, articleService, refresher),
	}
}

// Init validates the configuration and starts the background loops that
// are switched on
func (f *Feature) Init(ctx context.Context) error {
	if err := f.BaseFeature.Init(ctx); err != nil {
		return err
	}

	if err := f.config.Validate(); err != nil {
		return err
	}

	if f.config.PollingEnabled() {
		f.schedulerService.Add(services.Job{
			Name:         fetchJobName,
			Interval:     f.config.PollInterval,
			AllowOverlap: true,
			Fn: func(ctx context.Context) error {
				_, err := f.refresher.RefreshAll(ctx)
				return err
			},
		})
	}

	if f.config.PurgingEnabled() {
		f.schedulerService.Add(services.Job{
			Name:     purgeJobName,
			Interval: f.config.PurgeInterval,
			Fn: func(ctx context.Context) error {
				_, err := f.articleService.PurgeOlderThanDays(ctx, f.config.PurgeThresholdDays)
				return err
			},
		})
	}

	if len(f.schedulerService.Jobs()) == 0 {
		f.Logger().Info("Background loops disabled")
		return nil
	}

	// Loops live until Shutdown, not until the init context ends
	if err := f.schedulerService.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to start reader scheduler: %w", err)
	}
	f.Logger().Info("Reader scheduler started", "jobs", f.schedulerService.Jobs())
	return nil
}

// Migrate applies the reader schema
func (f *Feature) Migrate(ctx context.Context) error {
	return f.migrationMgr.Migrate(ctx)
}

// Rollback reverts the last applied reader migration
func (f *Feature) Rollback(ctx context.Context) error {
	return f.migrationMgr.Rollback(ctx)
}

// Routes returns the HTTP routes for the reader feature
func (f *Feature) Routes() []core.Route {
	return f.handlers.Routes()
}

// Shutdown stops the background loops
func (f *Feature) Shutdown(ctx context.Context) error {
	if err := f.schedulerService.Stop(ctx); err != nil {
		f.Logger().Error("Failed to stop reader scheduler", "error", err)
	}
	return f.BaseFeature.Shutdown(ctx)
}

// GetMigrationManager returns the migration manager for this feature
func (f *Feature) GetMigrationManager() *migrations.Manager {
	return f.migrationMgr
}

// GetFeedService returns the feed service
func (f *Feature) GetFeedService() *services.FeedService {
	return f.feedService
}

// GetArticleService returns the article service
func (f *Feature) GetArticleService() *services.ArticleService {
	return f.articleService
}

// GetRefresher returns the refresher
func (f *Feature) GetRefresher() *services.Refresher {
	return f.refresher
}

// GetSchedulerService returns the scheduler service
func (f *Feature) GetSchedulerService() *services.SchedulerService {
	return f.schedulerService
}
