package services

import (
	"context"
	"testing"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedArticles(t *testing.T, env *testEnv, tags ...string) []models.Article {
	t.Helper()

	feed := env.addFeed(t, "https://example.com/feed.xml", tags...)
	env.ingestEntries(t, feed.ID,
		entry("t1", testNow.Add(-3*time.Hour)),
		entry("t3", testNow.Add(-1*time.Hour)),
		entry("t2", testNow.Add(-2*time.Hour)),
	)

	articles, err := env.articles.UnreadArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 3)
	return articles
}

func guids(articles []models.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.GUID)
	}
	return out
}

func TestUnreadArticlesOrderedByPublishedDesc(t *testing.T) {
	env := newTestEnv(t)
	articles := seedArticles(t, env)

	assert.Equal(t, []string{"t3", "t2", "t1"}, guids(articles))
}

func TestMarkReadIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	articles := seedArticles(t, env)
	id := articles[0].ID

	require.NoError(t, env.articles.MarkRead(ctx, id))
	first, err := env.articles.GetArticle(ctx, id)
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	require.NoError(t, env.articles.MarkRead(ctx, id))
	second, err := env.articles.GetArticle(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, models.StateRead, second.State)
	assert.Equal(t, first.ReadAt, second.ReadAt)

	read, err := env.articles.ReadArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, guids(read))
}

func TestStarAndUnstar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	articles := seedArticles(t, env)
	id := articles[1].ID

	require.NoError(t, env.articles.Star(ctx, id))
	require.NoError(t, env.articles.Star(ctx, id))

	starred, err := env.articles.StarredArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, guids(starred))

	require.NoError(t, env.articles.Unstar(ctx, id))
	require.NoError(t, env.articles.Unstar(ctx, id))

	starred, err = env.articles.StarredArticles(ctx)
	require.NoError(t, err)
	assert.Empty(t, starred)
}

func TestUnknownArticleIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.True(t, core.HasCode(env.articles.MarkRead(ctx, 404), core.ErrCodeNotFound))
	assert.True(t, core.HasCode(env.articles.Star(ctx, 404), core.ErrCodeNotFound))
	assert.True(t, core.HasCode(env.articles.Unstar(ctx, 404), core.ErrCodeNotFound))

	_, err := env.articles.GetArticle(ctx, 404)
	assert.True(t, core.HasCode(err, core.ErrCodeNotFound))
	_, err = env.articles.AddTag(ctx, 404, "x")
	assert.True(t, core.HasCode(err, core.ErrCodeNotFound))
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedArticles(t, env)

	empty, err := env.articles.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, empty, "blank keywords return nothing")

	all, err := env.articles.Search(ctx, "POST")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	one, err := env.articles.Search(ctx, "body t2")
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, guids(one))

	none, err := env.articles.Search(ctx, "post nowhere")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestArticlesByTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	articles := seedArticles(t, env, "tech")

	_, err := env.articles.AddTag(ctx, articles[2].ID, "Later")
	require.NoError(t, err)
	require.NoError(t, env.articles.MarkRead(ctx, articles[0].ID))

	unread, err := env.articles.ArticlesByTag(ctx, models.ListingUnread, "TECH")
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t1"}, guids(unread))

	read, err := env.articles.ArticlesByTag(ctx, models.ListingRead, "tech")
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, guids(read))

	later, err := env.articles.ArticlesByTag(ctx, models.ListingUnread, "later")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, guids(later))

	updated, err := env.articles.RemoveTag(ctx, articles[2].ID, "LATER")
	require.NoError(t, err)
	assert.Equal(t, []string{"tech"}, updated.Tags)

	_, err = env.articles.ArticlesByTag(ctx, models.ListingUnread, " ")
	assert.True(t, core.HasCode(err, core.ErrCodeValidation))
}

func TestStatsStayConsistentWithListings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	articles := seedArticles(t, env)

	before, err := env.articles.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ArticleStats{Unread: 3}, before)

	for _, a := range articles[:2] {
		require.NoError(t, env.articles.MarkRead(ctx, a.ID))
	}
	require.NoError(t, env.articles.Star(ctx, articles[2].ID))

	after, err := env.articles.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Unread-2, after.Unread)
	assert.Equal(t, before.Read+2, after.Read)
	assert.Equal(t, before.Unread+before.Read, after.Unread+after.Read)
	assert.Equal(t, 1, after.Starred)

	list, err := env.articles.WithStats(ctx, env.articles.UnreadArticles)
	require.NoError(t, err)
	assert.Len(t, list.Articles, after.Unread)
	assert.Equal(t, after, list.Stats)
}

func TestPurge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feed := env.addFeed(t, "https://example.com/feed.xml")

	// Ingested 31 days ago
	env.clock.Set(testNow.Add(-31 * 24 * time.Hour))
	env.ingestEntries(t, feed.ID, entry("old-read", testNow), entry("old-unread", testNow), entry("old-starred", testNow))
	env.clock.Set(testNow)
	env.ingestEntries(t, feed.ID, entry("new-read", testNow))

	byGUID := map[string]int64{}
	all, err := env.store.QueryArticles(ctx, models.ArticleQuery{})
	require.NoError(t, err)
	for _, a := range all {
		byGUID[a.GUID] = a.ID
	}

	for _, guid := range []string{"old-read", "old-starred", "new-read"} {
		require.NoError(t, env.articles.MarkRead(ctx, byGUID[guid]))
	}
	require.NoError(t, env.articles.Star(ctx, byGUID["old-starred"]))

	env.articles.keepStarred = true
	deleted, err := env.articles.PurgeOlderThanDays(ctx, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	remaining, err := env.store.QueryArticles(ctx, models.ArticleQuery{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old-unread", "old-starred", "new-read"}, guids(remaining))

	env.articles.keepStarred = false
	deleted, err = env.articles.PurgeOlderThanDays(ctx, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = env.articles.PurgeOlderThanDays(ctx, 0)
	assert.True(t, core.HasCode(err, core.ErrCodeValidation))
}
