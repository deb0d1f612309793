package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/migrations"
	"feedreader/internal/features/reader/models"
	"feedreader/internal/features/reader/store"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store    *store.SQLStore
	feeds    *FeedService
	articles *ArticleService
	ingest   *IngestService
	fetcher  *FetcherService
	refresh  *Refresher
	clock    *testClock
}

type testClock struct {
	now atomic.Int64
}

func newTestClock(t time.Time) *testClock {
	c := &testClock{}
	c.Set(t)
	return c
}

func (c *testClock) Now() time.Time {
	return time.Unix(0, c.now.Load()).UTC()
}

func (c *testClock) Set(t time.Time) {
	c.now.Store(t.UnixNano())
}

func (c *testClock) Advance(d time.Duration) {
	c.now.Add(int64(d))
}

func testLogger() *core.Logger {
	return core.NewLoggerWithOptions(io.Discard, core.LogConfig{Level: "error"})
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testLogger()
	db, err := core.OpenSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.NewManager(db, logger).Migrate(context.Background()))

	st := store.NewSQLStore(db)
	clock := newTestClock(testNow)

	locks := NewFeedLocks()

	feeds := NewFeedService(st, logger, locks, false)
	feeds.now = clock.Now
	articles := NewArticleService(st, logger, false)
	articles.now = clock.Now
	ingest := NewIngestService(st, logger, locks)
	ingest.now = clock.Now

	fetcher := NewFetcherService(logger, &models.FetcherConfig{
		UserAgent:            "feedreader-test/1.0",
		Timeout:              5 * time.Second,
		MaxConcurrentFetches: 4,
	})

	return &testEnv{
		store:    st,
		feeds:    feeds,
		articles: articles,
		ingest:   ingest,
		fetcher:  fetcher,
		refresh:  NewRefresher(feeds, fetcher, ingest, logger),
		clock:    clock,
	}
}

func (e *testEnv) addFeed(t *testing.T, url string, tags ...string) *models.Feed {
	t.Helper()

	feed, err := e.feeds.AddFeed(context.Background(), models.FeedCreate{URL: url, Tags: tags})
	require.NoError(t, err)
	return feed
}

func (e *testEnv) ingestEntries(t *testing.T, feedID int64, entries ...models.CandidateEntry) models.IngestResult {
	t.Helper()

	result, err := e.ingest.Ingest(context.Background(), feedID, entries)
	require.NoError(t, err)
	return result
}

func entry(guid string, published time.Time) models.CandidateEntry {
	return models.CandidateEntry{
		GUID:        guid,
		Link:        "https://example.com/posts/" + guid,
		Title:       "Post " + guid,
		Content:     "<p>Body of " + guid + "</p>",
		PublishedAt: &published,
	}
}

// fixtureTransport serves canned documents keyed by url, so feeds can be
// registered under their real-looking urls
type fixtureTransport struct {
	responses map[string]fixture
	requests  atomic.Int32
}

type fixture struct {
	status int
	body   string
	delay  time.Duration
}

func (f *fixtureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.requests.Add(1)

	res, ok := f.responses[req.URL.String()]
	if !ok {
		return nil, fmt.Errorf("dial %s: connection refused", req.URL.Host)
	}

	if res.delay > 0 {
		select {
		case <-time.After(res.delay):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	return &http.Response{
		StatusCode: res.status,
		Header:     http.Header{"Content-Type": []string{"application/rss+xml"}},
		Body:       io.NopCloser(strings.NewReader(res.body)),
		Request:    req,
	}, nil
}

func (e *testEnv) serve(responses map[string]fixture) *fixtureTransport {
	transport := &fixtureTransport{responses: responses}
	e.fetcher.client.Transport = transport
	return transport
}

const threeItemFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Blog</title>
    <link>https://example.com/</link>
    <description>Posts</description>
    <item>
      <title>First post</title>
      <link>https://example.com/posts/1</link>
      <guid>post-1</guid>
      <description>One</description>
      <pubDate>Mon, 27 May 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second post</title>
      <link>https://example.com/posts/2</link>
      <guid>post-2</guid>
      <description>Two</description>
      <pubDate>Tue, 28 May 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Third post</title>
      <link>https://example.com/posts/3</link>
      <guid>post-3</guid>
      <description>Three</description>
      <pubDate>Wed, 29 May 2024 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`
