package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/models"
	"feedreader/internal/features/reader/store"
)

// FeedService owns feed definitions and their tags
type FeedService struct {
	store         store.Store
	logger        *core.Logger
	locks         *FeedLocks
	removeCascade bool
	now           func() time.Time
}

// NewFeedService creates a new feed service. With removeCascade set,
// removing a feed also deletes its articles; otherwise they are kept as
// orphans.
func NewFeedService(st store.Store, logger *core.Logger, locks *FeedLocks, removeCascade bool) *FeedService {
	return &FeedService{
		store:         st,
		logger:        logger,
		locks:         locks,
		removeCascade: removeCascade,
		now:           time.Now,
	}
}

// ValidateFeedURL checks that raw is an absolute http(s) url
func ValidateFeedURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", core.NewValidationError("feed url is required", nil)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", core.NewValidationError("feed url is malformed", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", core.NewValidationError(fmt.Sprintf("unsupported feed url scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return "", core.NewValidationError("feed url has no host", nil)
	}

	return parsed.String(), nil
}

// AddFeed registers a new feed with an empty fetch history
func (s *FeedService) AddFeed(ctx context.Context, create models.FeedCreate) (*models.Feed, error) {
	feedURL, err := ValidateFeedURL(create.URL)
	if err != nil {
		return nil, err
	}

	feed := &models.Feed{
		URL:       feedURL,
		Tags:      models.NormalizeTags(create.Tags),
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.InsertFeed(ctx, feed); err != nil {
		return nil, translate(err, "feed not found")
	}

	s.logger.Info("Registered feed", "id", feed.ID, "url", feed.URL, "tags", feed.Tags)
	return feed, nil
}

// GetFeed retrieves a feed by id
func (s *FeedService) GetFeed(ctx context.Context, id int64) (*models.Feed, error) {
	feed, err := s.store.GetFeed(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("feed %d not found", id))
	}
	return feed, nil
}

// ListFeeds returns every registered feed
func (s *FeedService) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	feeds, err := s.store.ListFeeds(ctx)
	if err != nil {
		return nil, translate(err, "feeds not found")
	}
	return feeds, nil
}

// RemoveFeed deletes a feed, applying the configured article policy. It
// waits for an ingest of the same feed to finish first.
func (s *FeedService) RemoveFeed(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.DeleteFeed(ctx, id); err != nil {
		return translate(err, fmt.Sprintf("feed %d not found", id))
	}

	if !s.removeCascade {
		s.logger.Info("Removed feed, articles retained", "id", id)
		return nil
	}

	deleted, err := s.store.DeleteArticlesByFeed(ctx, id)
	if err != nil {
		return translate(err, fmt.Sprintf("feed %d not found", id))
	}

	s.logger.Info("Removed feed and its articles", "id", id, "articles", deleted)
	return nil
}

// AddTag adds a tag to a feed. Tags are stored lower-cased.
func (s *FeedService) AddTag(ctx context.Context, id int64, tag string) (*models.Feed, error) {
	normalized, err := normalizeTagArg(tag)
	if err != nil {
		return nil, err
	}

	if err := s.store.AddFeedTag(ctx, id, normalized); err != nil {
		return nil, translate(err, fmt.Sprintf("feed %d not found", id))
	}
	return s.GetFeed(ctx, id)
}

// RemoveTag removes a tag from a feed
func (s *FeedService) RemoveTag(ctx context.Context, id int64, tag string) (*models.Feed, error) {
	normalized, err := normalizeTagArg(tag)
	if err != nil {
		return nil, err
	}

	if err := s.store.RemoveFeedTag(ctx, id, normalized); err != nil {
		return nil, translate(err, fmt.Sprintf("feed %d not found", id))
	}
	return s.GetFeed(ctx, id)
}

// SetTitleIfEmpty fills in the title and site url of a feed registered by url only
func (s *FeedService) SetTitleIfEmpty(ctx context.Context, feed *models.Feed, parsed *models.ParsedFeed) error {
	if feed.Title != "" || parsed == nil || parsed.Title == "" {
		return nil
	}

	if err := s.store.SetFeedTitle(ctx, feed.ID, parsed.Title, parsed.Link); err != nil {
		return translate(err, fmt.Sprintf("feed %d not found", feed.ID))
	}

	feed.Title = parsed.Title
	feed.SiteURL = parsed.Link
	return nil
}

// Import registers every feed of a subscription list. Feeds that already
// exist get the listed tags merged in.
func (s *FeedService) Import(ctx context.Context, list models.SubscriptionList) (*models.ImportResult, error) {
	result := &models.ImportResult{}

	for _, sub := range list.Feeds {
		_, err := s.AddFeed(ctx, models.FeedCreate{URL: sub.URL, Tags: sub.Tags})
		switch {
		case err == nil:
			result.Added++
		case core.HasCode(err, core.ErrCodeDuplicateFeed):
			result.Existing++
			if err := s.mergeTags(ctx, sub); err != nil {
				return result, err
			}
		case core.HasCode(err, core.ErrCodeValidation):
			s.logger.Warn("Skipping invalid subscription", "url", sub.URL, "error", err)
			result.Failed = append(result.Failed, sub.URL)
		default:
			return result, err
		}
	}

	s.logger.Info("Imported subscriptions", "added", result.Added, "existing", result.Existing, "failed", len(result.Failed))
	return result, nil
}

func (s *FeedService) mergeTags(ctx context.Context, sub models.Subscription) error {
	feedURL, err := ValidateFeedURL(sub.URL)
	if err != nil {
		return err
	}

	existing, err := s.store.GetFeedByURL(ctx, feedURL)
	if err != nil {
		return translate(err, fmt.Sprintf("feed %s not found", feedURL))
	}

	for _, tag := range models.NormalizeTags(sub.Tags) {
		if err := s.store.AddFeedTag(ctx, existing.ID, tag); err != nil {
			return translate(err, fmt.Sprintf("feed %d not found", existing.ID))
		}
	}
	return nil
}

func normalizeTagArg(tag string) (string, error) {
	normalized := models.NormalizeTag(tag)
	if normalized == "" {
		return "", core.NewValidationError("tag must not be empty", nil)
	}
	return normalized, nil
}

// errIsNotFound reports whether err is an unknown-id error
func errIsNotFound(err error) bool {
	return core.HasCode(err, core.ErrCodeNotFound) || errors.Is(err, store.ErrNotFound)
}
