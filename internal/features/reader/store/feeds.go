package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/models"

	"github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
)

// tagBatchSize bounds the number of ids bound into a single IN list
const tagBatchSize = 500

var feedColumns = []string{
	"id", "url", "title", "site_url", "last_fetched_at", "last_fetch_status", "last_fetch_error", "created_at",
}

// SQLStore implements Store on SQLite
type SQLStore struct {
	db *core.Database
}

// NewSQLStore creates a store over an open database
func NewSQLStore(db *core.Database) *SQLStore {
	return &SQLStore{db: db}
}

var _ Store = (*SQLStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*models.Feed, error) {
	var feed models.Feed
	var lastFetched sql.NullInt64
	var status string
	var createdAt int64

	err := row.Scan(
		&feed.ID,
		&feed.URL,
		&feed.Title,
		&feed.SiteURL,
		&lastFetched,
		&status,
		&feed.LastFetchError,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if lastFetched.Valid {
		t := fromMillis(lastFetched.Int64)
		feed.LastFetchedAt = &t
	}
	feed.LastFetchStatus = models.FetchStatus(status)
	feed.CreatedAt = fromMillis(createdAt)
	feed.Tags = []string{}
	return &feed, nil
}

// InsertFeed stores a new feed and its tags, assigning feed.ID
func (s *SQLStore) InsertFeed(ctx context.Context, feed *models.Feed) error {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertIgnoreInto("feeds")
		ib.Cols("url", "title", "site_url", "last_fetch_status", "created_at")
		ib.Values(feed.URL, feed.Title, feed.SiteURL, string(models.FetchStatusNever), toMillis(feed.CreatedAt))

		query, args := ib.Build()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert feed: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to insert feed: %w", err)
		}
		if affected == 0 {
			return ErrDuplicate
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read feed id: %w", err)
		}
		feed.ID = id

		for _, tag := range feed.Tags {
			if err := insertTag(ctx, tx, "feed_tags", "feed_id", id, tag); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetFeed retrieves a feed by id
func (s *SQLStore) GetFeed(ctx context.Context, id int64) (*models.Feed, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(feedColumns...).From("feeds")
	sb.Where(sb.Equal("id", id))

	return s.getFeed(ctx, sb)
}

// GetFeedByURL retrieves a feed by its url
func (s *SQLStore) GetFeedByURL(ctx context.Context, url string) (*models.Feed, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(feedColumns...).From("feeds")
	sb.Where(sb.Equal("url", url))

	return s.getFeed(ctx, sb)
}

func (s *SQLStore) getFeed(ctx context.Context, sb *sqlbuilder.SelectBuilder) (*models.Feed, error) {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	query, args := sb.Build()
	feed, err := scanFeed(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	tags, err := s.loadTags(ctx, "feed_tags", "feed_id", []int64{feed.ID})
	if err != nil {
		return nil, err
	}
	feed.Tags = tagsOrEmpty(tags[feed.ID])
	return feed, nil
}

// ListFeeds returns every registered feed ordered by id
func (s *SQLStore) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(feedColumns...).From("feeds")
	sb.OrderBy("id").Asc()

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}

	feeds := []models.Feed{}
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, *feed)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read feeds: %w", err)
	}
	rows.Close()

	ids := lo.Map(feeds, func(feed models.Feed, _ int) int64 { return feed.ID })
	tags, err := s.loadTags(ctx, "feed_tags", "feed_id", ids)
	if err != nil {
		return nil, err
	}
	for i := range feeds {
		feeds[i].Tags = tagsOrEmpty(tags[feeds[i].ID])
	}

	return feeds, nil
}

// DeleteFeed removes a feed and its tags. Articles are left untouched.
func (s *SQLStore) DeleteFeed(ctx context.Context, id int64) error {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		dtags := sqlbuilder.SQLite.NewDeleteBuilder()
		dtags.DeleteFrom("feed_tags").Where(dtags.Equal("feed_id", id))
		query, args := dtags.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete feed tags: %w", err)
		}

		dfeed := sqlbuilder.SQLite.NewDeleteBuilder()
		dfeed.DeleteFrom("feeds").Where(dfeed.Equal("id", id))
		query, args = dfeed.Build()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete feed: %w", err)
		}
		return requireAffected(res)
	})
}

// AddFeedTag adds a tag to a feed; adding a present tag is a no-op
func (s *SQLStore) AddFeedTag(ctx context.Context, id int64, tag string) error {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "feeds", id); err != nil {
			return err
		}
		return insertTag(ctx, tx, "feed_tags", "feed_id", id, tag)
	})
}

// RemoveFeedTag removes a tag from a feed; removing an absent tag is a no-op
func (s *SQLStore) RemoveFeedTag(ctx context.Context, id int64, tag string) error {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "feeds", id); err != nil {
			return err
		}
		return deleteTag(ctx, tx, "feed_tags", "feed_id", id, tag)
	})
}

// SetFeedTitle stores the title and site url reported by the feed document
func (s *SQLStore) SetFeedTitle(ctx context.Context, id int64, title, siteURL string) error {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("feeds")
	ub.Set(ub.Assign("title", title), ub.Assign("site_url", siteURL))
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update feed title: %w", err)
	}
	return requireAffected(res)
}

// UpdateFetchStatus records the outcome of a fetch. A failure keeps the
// previous lastFetchedAt.
func (s *SQLStore) UpdateFetchStatus(ctx context.Context, id int64, status models.FetchStatus, fetchedAt time.Time, fetchErr string) error {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("feeds")
	ub.Set(ub.Assign("last_fetch_status", string(status)), ub.Assign("last_fetch_error", fetchErr))
	if status == models.FetchStatusSuccess {
		ub.SetMore(ub.Assign("last_fetched_at", toMillis(fetchedAt)))
	}
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update fetch status: %w", err)
	}
	return requireAffected(res)
}

// loadTags fetches the tag sets of the given owners. It must not be called
// while another result set is open on the connection.
func (s *SQLStore) loadTags(ctx context.Context, table, ownerColumn string, ids []int64) (map[int64][]string, error) {
	tags := make(map[int64][]string, len(ids))

	for _, chunk := range lo.Chunk(ids, tagBatchSize) {
		sb := sqlbuilder.SQLite.NewSelectBuilder()
		sb.Select(ownerColumn, "tag").From(table)
		sb.Where(sb.In(ownerColumn, sqlbuilder.Flatten(chunk)...))
		sb.OrderBy(ownerColumn, "tag").Asc()

		query, args := sb.Build()
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", table, err)
		}

		for rows.Next() {
			var owner int64
			var tag string
			if err := rows.Scan(&owner, &tag); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s: %w", table, err)
			}
			tags[owner] = append(tags[owner], tag)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", table, err)
		}
	}

	return tags, nil
}

func insertTag(ctx context.Context, tx *sql.Tx, table, ownerColumn string, owner int64, tag string) error {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertIgnoreInto(table)
	ib.Cols(ownerColumn, "tag")
	ib.Values(owner, tag)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func deleteTag(ctx context.Context, tx *sql.Tx, table, ownerColumn string, owner int64, tag string) error {
	db := sqlbuilder.SQLite.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(db.Equal(ownerColumn, owner), db.Equal("tag", tag))

	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

func requireRow(ctx context.Context, tx *sql.Tx, table string, id int64) error {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("failed to look up %s %d: %w", table, id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
