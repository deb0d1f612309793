package services

import (
	"context"
	"sync"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/models"
)

// Refresher drives the fetch, parse and ingest pipeline for registered feeds
type Refresher struct {
	feeds    *FeedService
	fetcher  *FetcherService
	ingest   *IngestService
	logger   *core.Logger
	inFlight sync.Map
}

// NewRefresher creates a new refresher
func NewRefresher(feeds *FeedService, fetcher *FetcherService, ingest *IngestService, logger *core.Logger) *Refresher {
	return &Refresher{
		feeds:   feeds,
		fetcher: fetcher,
		ingest:  ingest,
		logger:  logger,
	}
}

// RefreshAll fetches every registered feed and ingests the results. Feeds
// still being refreshed by an earlier cycle are skipped.
func (r *Refresher) RefreshAll(ctx context.Context) (*models.FetchSummary, error) {
	feeds, err := r.feeds.ListFeeds(ctx)
	if err != nil {
		return nil, err
	}

	claimed := make([]models.Feed, 0, len(feeds))
	var skipped []models.FeedResult
	for _, feed := range feeds {
		if !r.claim(feed.ID) {
			skipped = append(skipped, models.FeedResult{FeedID: feed.ID, URL: feed.URL, InFlight: true})
			continue
		}
		claimed = append(claimed, feed)
	}

	summary := r.fetcher.FetchAll(ctx, claimed, r.handle)
	summary.Total += len(skipped)
	summary.Skipped = len(skipped)
	summary.Results = append(summary.Results, skipped...)

	r.logger.Info("Fetch cycle completed",
		"feeds", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"inserted", summary.Inserted,
		"duplicates", summary.Duplicates,
		"duration", summary.Duration,
	)
	return &summary, nil
}

// RefreshFeed fetches and ingests a single feed immediately
func (r *Refresher) RefreshFeed(ctx context.Context, id int64) (*models.FeedResult, error) {
	feed, err := r.feeds.GetFeed(ctx, id)
	if err != nil {
		return nil, err
	}

	if !r.claim(feed.ID) {
		r.logger.Info("Feed refresh already in progress", "feed_id", feed.ID)
		return &models.FeedResult{FeedID: feed.ID, URL: feed.URL, InFlight: true}, nil
	}

	parsed, fetchErr := r.fetcher.FetchOne(ctx, *feed)
	result := r.handle(ctx, *feed, parsed, fetchErr)
	if fetchErr != nil {
		return &result, core.NewFetchError("feed could not be fetched", fetchErr)
	}
	if result.Error != "" {
		return &result, core.NewStorageError(result.Error, nil)
	}
	return &result, nil
}

func (r *Refresher) claim(feedID int64) bool {
	_, busy := r.inFlight.LoadOrStore(feedID, struct{}{})
	return !busy
}

// handle ingests one fetch outcome and releases the feed's claim
func (r *Refresher) handle(ctx context.Context, feed models.Feed, parsed *models.ParsedFeed, fetchErr error) models.FeedResult {
	defer r.inFlight.Delete(feed.ID)

	result := models.FeedResult{FeedID: feed.ID, URL: feed.URL}

	if fetchErr != nil {
		r.logger.Warn("Feed fetch failed", "feed_id", feed.ID, "url", feed.URL, "error", fetchErr)
		result.Error = fetchErr.Error()
		r.recordFailure(ctx, feed, fetchErr)
		return result
	}

	if err := r.feeds.SetTitleIfEmpty(ctx, &feed, parsed); err != nil && !errIsNotFound(err) {
		r.logger.Warn("Failed to store feed title", "feed_id", feed.ID, "error", err)
	}

	ingested, err := r.ingest.Ingest(ctx, feed.ID, parsed.Entries)
	result.Inserted = ingested.Inserted
	result.Skipped = ingested.Skipped
	if err != nil {
		result.Error = err.Error()
		if errIsNotFound(err) {
			r.logger.Info("Feed removed during refresh", "feed_id", feed.ID)
			return result
		}
		r.logger.Error("Feed ingest failed", "feed_id", feed.ID, "url", feed.URL, "error", err)
		r.recordFailure(ctx, feed, err)
	}

	return result
}

func (r *Refresher) recordFailure(ctx context.Context, feed models.Feed, cause error) {
	if err := r.ingest.RecordFailure(ctx, feed.ID, cause); err != nil && !errIsNotFound(err) {
		r.logger.Error("Failed to record fetch failure", "feed_id", feed.ID, "error", err)
	}
}
