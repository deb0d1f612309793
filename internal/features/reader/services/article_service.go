package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/metrics"
	"feedreader/internal/features/reader/models"
	"feedreader/internal/features/reader/store"

	"golang.org/x/sync/errgroup"
)

// ArticleService handles article state transitions, queries and purging
type ArticleService struct {
	store       store.ArticleStore
	logger      *core.Logger
	keepStarred bool
	now         func() time.Time
}

// NewArticleService creates a new article service. With keepStarred set,
// purge leaves starred read articles alone.
func NewArticleService(st store.ArticleStore, logger *core.Logger, keepStarred bool) *ArticleService {
	return &ArticleService{
		store:       st,
		logger:      logger,
		keepStarred: keepStarred,
		now:         time.Now,
	}
}

// GetArticle retrieves an article by id
func (s *ArticleService) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	article, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, translate(err, articleNotFound(id))
	}
	return article, nil
}

// MarkRead moves an article to read. Marking a read article again is a no-op.
func (s *ArticleService) MarkRead(ctx context.Context, id int64) error {
	if err := s.store.MarkRead(ctx, id, s.now().UTC()); err != nil {
		return translate(err, articleNotFound(id))
	}
	return nil
}

// Star flags an article as starred
func (s *ArticleService) Star(ctx context.Context, id int64) error {
	return s.setStarred(ctx, id, true)
}

// Unstar clears the starred flag of an article
func (s *ArticleService) Unstar(ctx context.Context, id int64) error {
	return s.setStarred(ctx, id, false)
}

func (s *ArticleService) setStarred(ctx context.Context, id int64, starred bool) error {
	if err := s.store.SetStarred(ctx, id, starred); err != nil {
		return translate(err, articleNotFound(id))
	}
	return nil
}

// AddTag adds a tag to an article
func (s *ArticleService) AddTag(ctx context.Context, id int64, tag string) (*models.Article, error) {
	normalized, err := normalizeTagArg(tag)
	if err != nil {
		return nil, err
	}

	if err := s.store.AddArticleTag(ctx, id, normalized); err != nil {
		return nil, translate(err, articleNotFound(id))
	}
	return s.GetArticle(ctx, id)
}

// RemoveTag removes a tag from an article
func (s *ArticleService) RemoveTag(ctx context.Context, id int64, tag string) (*models.Article, error) {
	normalized, err := normalizeTagArg(tag)
	if err != nil {
		return nil, err
	}

	if err := s.store.RemoveArticleTag(ctx, id, normalized); err != nil {
		return nil, translate(err, articleNotFound(id))
	}
	return s.GetArticle(ctx, id)
}

// UnreadArticles returns unread articles, most recently published first
func (s *ArticleService) UnreadArticles(ctx context.Context) ([]models.Article, error) {
	return s.List(ctx, models.ListingUnread)
}

// ReadArticles returns read articles, most recently published first
func (s *ArticleService) ReadArticles(ctx context.Context) ([]models.Article, error) {
	return s.List(ctx, models.ListingRead)
}

// StarredArticles returns starred articles, most recently published first
func (s *ArticleService) StarredArticles(ctx context.Context) ([]models.Article, error) {
	return s.List(ctx, models.ListingStarred)
}

// List returns the articles of a listing
func (s *ArticleService) List(ctx context.Context, listing models.Listing) ([]models.Article, error) {
	return s.query(ctx, models.QueryFor(listing))
}

// Search returns articles whose title or content contains every keyword,
// ignoring case. No keywords means no results.
func (s *ArticleService) Search(ctx context.Context, keywords string) ([]models.Article, error) {
	tokens := strings.Fields(keywords)
	if len(tokens) == 0 {
		return []models.Article{}, nil
	}
	return s.query(ctx, models.ArticleQuery{Keywords: tokens})
}

// ArticlesByTag returns the articles of a listing carrying tag
func (s *ArticleService) ArticlesByTag(ctx context.Context, listing models.Listing, tag string) ([]models.Article, error) {
	normalized, err := normalizeTagArg(tag)
	if err != nil {
		return nil, err
	}

	query := models.QueryFor(listing)
	query.Tag = normalized
	return s.query(ctx, query)
}

// Stats counts articles per state from storage
func (s *ArticleService) Stats(ctx context.Context) (models.ArticleStats, error) {
	stats, err := s.store.CountArticles(ctx)
	if err != nil {
		return models.ArticleStats{}, translate(err, "articles not found")
	}
	return stats, nil
}

// WithStats runs a listing query and the stats count concurrently and
// returns both once each has completed
func (s *ArticleService) WithStats(ctx context.Context, load func(ctx context.Context) ([]models.Article, error)) (*models.ArticleList, error) {
	var list models.ArticleList

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		articles, err := load(gctx)
		if err != nil {
			return err
		}
		list.Articles = articles
		return nil
	})
	g.Go(func() error {
		stats, err := s.Stats(gctx)
		if err != nil {
			return err
		}
		list.Stats = stats
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &list, nil
}

// Purge deletes read articles fetched longer than threshold ago
func (s *ArticleService) Purge(ctx context.Context, threshold time.Duration) (int64, error) {
	if threshold <= 0 {
		return 0, core.NewValidationError("purge threshold must be positive", nil)
	}

	cutoff := s.now().UTC().Add(-threshold)
	deleted, err := s.store.DeleteReadArticles(ctx, cutoff, s.keepStarred)
	if err != nil {
		return 0, translate(err, "articles not found")
	}

	metrics.ArticlesPurged.Add(float64(deleted))
	s.logger.Info("Purged read articles", "deleted", deleted, "cutoff", cutoff, "keep_starred", s.keepStarred)
	return deleted, nil
}

// PurgeOlderThanDays is Purge with the threshold given in days
func (s *ArticleService) PurgeOlderThanDays(ctx context.Context, days int) (int64, error) {
	return s.Purge(ctx, time.Duration(days)*24*time.Hour)
}

func (s *ArticleService) query(ctx context.Context, query models.ArticleQuery) ([]models.Article, error) {
	articles, err := s.store.QueryArticles(ctx, query)
	if err != nil {
		return nil, translate(err, "articles not found")
	}
	return articles, nil
}

func articleNotFound(id int64) string {
	return fmt.Sprintf("article %d not found", id)
}
