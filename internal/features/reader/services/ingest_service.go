package services

import (
	"context"
	"fmt"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/metrics"
	"feedreader/internal/features/reader/models"
	"feedreader/internal/features/reader/store"
)

// IngestService is the only writer of new articles. It compares candidate
// entries against stored identities and inserts the new ones.
type IngestService struct {
	store  store.Store
	logger *core.Logger
	locks  *FeedLocks
	now    func() time.Time
}

// NewIngestService creates a new ingest service. locks must be the set
// shared with the FeedService so removals never interleave with ingest.
func NewIngestService(st store.Store, logger *core.Logger, locks *FeedLocks) *IngestService {
	return &IngestService{
		store:  st,
		logger: logger,
		locks:  locks,
		now:    time.Now,
	}
}

// Ingest stores the candidates not yet known for the feed and marks the
// feed as successfully fetched. Calls for the same feed are serialised.
func (s *IngestService) Ingest(ctx context.Context, feedID int64, candidates []models.CandidateEntry) (models.IngestResult, error) {
	unlock := s.locks.Lock(feedID)
	defer unlock()

	var result models.IngestResult

	feed, err := s.store.GetFeed(ctx, feedID)
	if err != nil {
		return result, translate(err, fmt.Sprintf("feed %d not found", feedID))
	}

	now := s.now().UTC()
	for _, candidate := range candidates {
		key := candidate.IdentityKey()
		if key == "" {
			result.Skipped++
			continue
		}

		exists, err := s.store.ArticleExists(ctx, feedID, key)
		if err != nil {
			return result, translate(err, fmt.Sprintf("feed %d not found", feedID))
		}
		if exists {
			result.Skipped++
			continue
		}

		publishedAt := now
		if candidate.PublishedAt != nil {
			publishedAt = candidate.PublishedAt.UTC()
		}

		article := &models.Article{
			FeedID:      feedID,
			GUID:        candidate.GUID,
			Link:        candidate.Link,
			IdentityKey: key,
			Title:       candidate.Title,
			Content:     candidate.Content,
			Author:      candidate.Author,
			PublishedAt: publishedAt,
			FetchedAt:   now,
			State:       models.StateUnread,
			Starred:     false,
			Tags:        append([]string{}, feed.Tags...),
		}

		inserted, err := s.store.InsertArticle(ctx, article)
		if err != nil {
			return result, translate(err, fmt.Sprintf("feed %d not found", feedID))
		}
		if inserted {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	if err := s.store.UpdateFetchStatus(ctx, feedID, models.FetchStatusSuccess, now, ""); err != nil {
		return result, translate(err, fmt.Sprintf("feed %d not found", feedID))
	}

	metrics.RecordIngest(result.Inserted, result.Skipped)
	s.logger.Info("Ingested feed", "feed_id", feedID, "inserted", result.Inserted, "skipped", result.Skipped)
	return result, nil
}

// RecordFailure marks the last fetch of a feed as failed
func (s *IngestService) RecordFailure(ctx context.Context, feedID int64, cause error) error {
	unlock := s.locks.Lock(feedID)
	defer unlock()

	message := ""
	if cause != nil {
		message = cause.Error()
	}

	if err := s.store.UpdateFetchStatus(ctx, feedID, models.FetchStatusFailure, s.now().UTC(), message); err != nil {
		return translate(err, fmt.Sprintf("feed %d not found", feedID))
	}
	return nil
}
