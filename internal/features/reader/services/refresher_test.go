package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshAllEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.serve(map[string]fixture{
		"https://example.com/feed.xml": {status: http.StatusOK, body: threeItemFeed},
	})

	feed := env.addFeed(t, "https://example.com/feed.xml", "tech")

	summary, err := env.refresh.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 3, summary.Inserted)

	articles, err := env.articles.UnreadArticles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 3)
	assert.Equal(t, []string{"post-3", "post-2", "post-1"}, guids(articles))
	for _, a := range articles {
		assert.Equal(t, models.StateUnread, a.State)
		assert.Equal(t, []string{"tech"}, a.Tags)
		assert.Equal(t, "Example Blog", a.FeedTitle)
	}

	summary, err = env.refresh.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 3, summary.Duplicates)

	got, err := env.feeds.GetFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, "Example Blog", got.Title)
	assert.Equal(t, "https://example.com/", got.SiteURL)
	assert.Equal(t, models.FetchStatusSuccess, got.LastFetchStatus)
}

func TestRefreshAllRecordsFailuresPerFeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.serve(map[string]fixture{
		"https://good.example.com/feed.xml": {status: http.StatusOK, body: threeItemFeed},
		"https://bad.example.com/feed.xml":  {status: http.StatusBadGateway},
	})

	good := env.addFeed(t, "https://good.example.com/feed.xml")
	bad := env.addFeed(t, "https://bad.example.com/feed.xml")

	summary, err := env.refresh.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 3, summary.Inserted)

	got, err := env.feeds.GetFeed(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FetchStatusFailure, got.LastFetchStatus)
	assert.Contains(t, got.LastFetchError, "502")

	got, err = env.feeds.GetFeed(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FetchStatusSuccess, got.LastFetchStatus)
}

func TestRefreshSkipsFeedsInFlight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	transport := env.serve(map[string]fixture{
		"https://example.com/feed.xml": {status: http.StatusOK, body: threeItemFeed},
	})
	feed := env.addFeed(t, "https://example.com/feed.xml")

	require.True(t, env.refresh.claim(feed.ID))

	summary, err := env.refresh.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Inserted)
	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].InFlight)

	result, err := env.refresh.RefreshFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.True(t, result.InFlight)
	assert.Zero(t, transport.requests.Load())

	env.refresh.inFlight.Delete(feed.ID)
	result, err = env.refresh.RefreshFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.True(t, env.refresh.claim(feed.ID), "claims are released after a refresh")
}

func TestOverlappingCyclesNeverDoubleInsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.serve(map[string]fixture{
		"https://example.com/feed.xml": {status: http.StatusOK, body: threeItemFeed, delay: 50 * time.Millisecond},
	})
	env.addFeed(t, "https://example.com/feed.xml")

	done := make(chan *models.FetchSummary, 2)
	for i := 0; i < 2; i++ {
		go func() {
			summary, err := env.refresh.RefreshAll(ctx)
			assert.NoError(t, err)
			done <- summary
		}()
	}

	inserted := 0
	for i := 0; i < 2; i++ {
		summary := <-done
		inserted += summary.Inserted
	}
	assert.Equal(t, 3, inserted)

	stats, err := env.articles.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Unread)
}

func TestRefreshFeedErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.serve(map[string]fixture{})

	_, err := env.refresh.RefreshFeed(ctx, 99)
	assert.True(t, core.HasCode(err, core.ErrCodeNotFound))

	feed := env.addFeed(t, "https://down.example.com/feed.xml")
	result, err := env.refresh.RefreshFeed(ctx, feed.ID)
	assert.True(t, core.HasCode(err, core.ErrCodeFetch))
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Error)
}
