package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedreader/internal/features/reader/models"

	"github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
)

var articleColumns = []string{
	"a.id", "a.feed_id", "f.title", "f.url", "a.guid", "a.link", "a.identity_key", "a.title", "a.content",
	"a.author", "a.published_at", "a.fetched_at", "a.read_at", "a.state", "a.starred",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func newArticleSelect() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(articleColumns...).From("articles a")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "feeds f", "f.id = a.feed_id")
	return sb
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var article models.Article
	var feedTitle, feedURL sql.NullString
	var publishedAt, fetchedAt int64
	var readAt sql.NullInt64
	var state string

	err := row.Scan(
		&article.ID,
		&article.FeedID,
		&feedTitle,
		&feedURL,
		&article.GUID,
		&article.Link,
		&article.IdentityKey,
		&article.Title,
		&article.Content,
		&article.Author,
		&publishedAt,
		&fetchedAt,
		&readAt,
		&state,
		&article.Starred,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case !feedURL.Valid:
		article.FeedTitle = models.UnknownFeedTitle
	case feedTitle.String == "":
		article.FeedTitle = feedURL.String
	default:
		article.FeedTitle = feedTitle.String
	}

	article.PublishedAt = fromMillis(publishedAt)
	article.FetchedAt = fromMillis(fetchedAt)
	if readAt.Valid {
		t := fromMillis(readAt.Int64)
		article.ReadAt = &t
	}
	article.State = models.ArticleState(state)
	article.Tags = []string{}
	return &article, nil
}

// ArticleExists reports whether the feed already holds an article with the
// given identity key
func (s *SQLStore) ArticleExists(ctx context.Context, feedID int64, identityKey string) (bool, error) {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("articles")
	sb.Where(sb.Equal("feed_id", feedID), sb.Equal("identity_key", identityKey))

	query, args := sb.Build()
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check article identity: %w", err)
	}
	return count > 0, nil
}

// InsertArticle stores a new article with its tag snapshot
func (s *SQLStore) InsertArticle(ctx context.Context, article *models.Article) (bool, error) {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	inserted := false
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertIgnoreInto("articles")
		ib.Cols("feed_id", "guid", "link", "identity_key", "title", "content", "author",
			"published_at", "fetched_at", "state", "starred")
		ib.Values(article.FeedID, article.GUID, article.Link, article.IdentityKey, article.Title, article.Content,
			article.Author, toMillis(article.PublishedAt), toMillis(article.FetchedAt), string(article.State),
			boolToInt(article.Starred))

		query, args := ib.Build()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert article: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to insert article: %w", err)
		}
		if affected == 0 {
			return nil
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read article id: %w", err)
		}

		for _, tag := range article.Tags {
			if err := insertTag(ctx, tx, "article_tags", "article_id", id, tag); err != nil {
				return err
			}
		}

		article.ID = id
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return inserted, nil
}

// GetArticle retrieves an article by id
func (s *SQLStore) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	sb := newArticleSelect()
	sb.Where(sb.Equal("a.id", id))

	query, args := sb.Build()
	article, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	tags, err := s.loadTags(ctx, "article_tags", "article_id", []int64{id})
	if err != nil {
		return nil, err
	}
	article.Tags = tagsOrEmpty(tags[id])
	return article, nil
}

// MarkRead moves an unread article to read. Already-read articles keep
// their original readAt.
func (s *SQLStore) MarkRead(ctx context.Context, id int64, readAt time.Time) error {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		ub := sqlbuilder.SQLite.NewUpdateBuilder()
		ub.Update("articles")
		ub.Set(ub.Assign("state", string(models.StateRead)), ub.Assign("read_at", toMillis(readAt)))
		ub.Where(ub.Equal("id", id), ub.Equal("state", string(models.StateUnread)))

		query, args := ub.Build()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to mark article read: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to mark article read: %w", err)
		}
		if affected > 0 {
			return nil
		}
		return requireRow(ctx, tx, "articles", id)
	})
}

// SetStarred sets the starred flag of an article
func (s *SQLStore) SetStarred(ctx context.Context, id int64, starred bool) error {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("articles")
	ub.Set(ub.Assign("starred", boolToInt(starred)))
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update starred flag: %w", err)
	}
	return requireAffected(res)
}

// AddArticleTag adds a tag to an article; adding a present tag is a no-op
func (s *SQLStore) AddArticleTag(ctx context.Context, id int64, tag string) error {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "articles", id); err != nil {
			return err
		}
		return insertTag(ctx, tx, "article_tags", "article_id", id, tag)
	})
}

// RemoveArticleTag removes a tag from an article; removing an absent tag is a no-op
func (s *SQLStore) RemoveArticleTag(ctx context.Context, id int64, tag string) error {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "articles", id); err != nil {
			return err
		}
		return deleteTag(ctx, tx, "article_tags", "article_id", id, tag)
	})
}

// QueryArticles returns matching articles, most recently published first
func (s *SQLStore) QueryArticles(ctx context.Context, q models.ArticleQuery) ([]models.Article, error) {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	sb := newArticleSelect()
	if q.State != "" {
		sb.Where(sb.Equal("a.state", string(q.State)))
	}
	if q.Starred != nil {
		sb.Where(sb.Equal("a.starred", boolToInt(*q.Starred)))
	}
	if q.FeedID != 0 {
		sb.Where(sb.Equal("a.feed_id", q.FeedID))
	}
	if q.Tag != "" {
		sb.Where(fmt.Sprintf("a.id IN (SELECT article_id FROM article_tags WHERE tag = %s)",
			sb.Args.Add(models.NormalizeTag(q.Tag))))
	}
	for _, keyword := range q.Keywords {
		pattern := "%" + likeEscaper.Replace(keyword) + "%"
		sb.Where(sb.Or(
			fmt.Sprintf(`a.title LIKE %s ESCAPE '\'`, sb.Args.Add(pattern)),
			fmt.Sprintf(`a.content LIKE %s ESCAPE '\'`, sb.Args.Add(pattern)),
		))
	}
	sb.OrderBy("a.published_at DESC", "a.id DESC")
	if q.Limit > 0 {
		sb.Limit(q.Limit)
	}

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}

	articles := []models.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read articles: %w", err)
	}
	rows.Close()

	ids := lo.Map(articles, func(article models.Article, _ int) int64 { return article.ID })
	tags, err := s.loadTags(ctx, "article_tags", "article_id", ids)
	if err != nil {
		return nil, err
	}
	for i := range articles {
		articles[i].Tags = tagsOrEmpty(tags[articles[i].ID])
	}

	return articles, nil
}

// CountArticles counts articles per state from the stored rows
func (s *SQLStore) CountArticles(ctx context.Context) (models.ArticleStats, error) {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(
		"COALESCE(SUM(CASE WHEN state = 'unread' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN state = 'read' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(starred), 0)",
	).From("articles")

	query, args := sb.Build()
	var stats models.ArticleStats
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&stats.Unread, &stats.Read, &stats.Starred); err != nil {
		return models.ArticleStats{}, fmt.Errorf("failed to count articles: %w", err)
	}
	return stats, nil
}

// DeleteReadArticles removes read articles fetched before cutoff
func (s *SQLStore) DeleteReadArticles(ctx context.Context, cutoff time.Time, keepStarred bool) (int64, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id").From("articles")
	sb.Where(sb.Equal("state", string(models.StateRead)), sb.LessThan("fetched_at", toMillis(cutoff)))
	if keepStarred {
		sb.Where(sb.Equal("starred", 0))
	}

	return s.deleteArticles(ctx, sb)
}

// DeleteArticlesByFeed removes every article of a feed
func (s *SQLStore) DeleteArticlesByFeed(ctx context.Context, feedID int64) (int64, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id").From("articles")
	sb.Where(sb.Equal("feed_id", feedID))

	return s.deleteArticles(ctx, sb)
}

// deleteArticles deletes the articles selected by sb together with their tags
// in one transaction
func (s *SQLStore) deleteArticles(ctx context.Context, sb *sqlbuilder.SelectBuilder) (int64, error) {
	ctx, cancel := s.db.Timeout(ctx)
	defer cancel()

	var deleted int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query, args := sb.Build()
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to select articles: %w", err)
		}

		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan article id: %w", err)
			}
			ids = append(ids, id)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("failed to read article ids: %w", err)
		}

		for _, chunk := range lo.Chunk(ids, tagBatchSize) {
			values := sqlbuilder.Flatten(chunk)

			dtags := sqlbuilder.SQLite.NewDeleteBuilder()
			dtags.DeleteFrom("article_tags").Where(dtags.In("article_id", values...))
			query, args := dtags.Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to delete article tags: %w", err)
			}

			darticles := sqlbuilder.SQLite.NewDeleteBuilder()
			darticles.DeleteFrom("articles").Where(darticles.In("id", values...))
			query, args = darticles.Build()
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("failed to delete articles: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to delete articles: %w", err)
			}
			deleted += affected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
