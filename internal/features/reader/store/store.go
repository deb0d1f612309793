// Package store persists feeds and articles. Two logical collections,
// feeds and articles, are kept together with their tag sets; every call is
// bounded by the database query timeout.
package store

import (
	"context"
	"errors"
	"time"

	"feedreader/internal/features/reader/models"
)

var (
	// ErrNotFound is returned when a feed or article id is unknown
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a feed url is already registered
	ErrDuplicate = errors.New("record already exists")
)

// FeedStore persists feed definitions
type FeedStore interface {
	InsertFeed(ctx context.Context, feed *models.Feed) error
	GetFeed(ctx context.Context, id int64) (*models.Feed, error)
	GetFeedByURL(ctx context.Context, url string) (*models.Feed, error)
	ListFeeds(ctx context.Context) ([]models.Feed, error)
	DeleteFeed(ctx context.Context, id int64) error
	AddFeedTag(ctx context.Context, id int64, tag string) error
	RemoveFeedTag(ctx context.Context, id int64, tag string) error
	SetFeedTitle(ctx context.Context, id int64, title, siteURL string) error
	UpdateFetchStatus(ctx context.Context, id int64, status models.FetchStatus, fetchedAt time.Time, fetchErr string) error
}

// ArticleStore persists articles and their state
type ArticleStore interface {
	ArticleExists(ctx context.Context, feedID int64, identityKey string) (bool, error)
	// InsertArticle stores a new article unless one with the same identity
	// already exists in the feed, and reports whether a row was written.
	InsertArticle(ctx context.Context, article *models.Article) (bool, error)
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	MarkRead(ctx context.Context, id int64, readAt time.Time) error
	SetStarred(ctx context.Context, id int64, starred bool) error
	AddArticleTag(ctx context.Context, id int64, tag string) error
	RemoveArticleTag(ctx context.Context, id int64, tag string) error
	QueryArticles(ctx context.Context, query models.ArticleQuery) ([]models.Article, error)
	CountArticles(ctx context.Context) (models.ArticleStats, error)
	DeleteReadArticles(ctx context.Context, cutoff time.Time, keepStarred bool) (int64, error)
	DeleteArticlesByFeed(ctx context.Context, feedID int64) (int64, error)
}

// Store is the full storage adapter used by the reader services
type Store interface {
	FeedStore
	ArticleStore
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
