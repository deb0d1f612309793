package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"feedreader/internal/features/reader/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Go &amp; Rust</title>
    <link>https://example.com/</link>
    <item>
      <title><![CDATA[<b>Bold</b> title]]></title>
      <link>https://example.com/a</link>
      <guid>guid-a</guid>
      <description>summary only</description>
      <content:encoded><![CDATA[<p>Hello <script>alert(1)</script>world</p>]]></content:encoded>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title>Link only</title>
      <link>https://example.com/b</link>
      <description><![CDATA[<em>described</em>]]></description>
    </item>
    <item>
      <title>Unidentifiable</title>
      <description>no guid, no link</description>
    </item>
  </channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <link href="https://atom.example.com/"/>
  <id>urn:uuid:feed</id>
  <updated>2024-05-01T10:00:00Z</updated>
  <entry>
    <title>Atom entry</title>
    <link href="https://atom.example.com/1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2024-05-01T10:00:00Z</updated>
    <author><name>Ada</name></author>
    <summary>Short</summary>
  </entry>
</feed>`

func TestParseRSS(t *testing.T) {
	fetcher := newTestEnv(t).fetcher

	parsed, err := fetcher.Parse(strings.NewReader(mixedRSS))
	require.NoError(t, err)

	assert.Equal(t, "Go & Rust", parsed.Title)
	assert.Equal(t, "https://example.com/", parsed.Link)
	require.Len(t, parsed.Entries, 2, "entries without guid and link are dropped")

	first := parsed.Entries[0]
	assert.Equal(t, "guid-a", first.GUID)
	assert.Equal(t, "Bold title", first.Title)
	assert.Contains(t, first.Content, "Hello")
	assert.NotContains(t, first.Content, "script")
	require.NotNil(t, first.PublishedAt)
	assert.True(t, first.PublishedAt.Equal(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)))

	second := parsed.Entries[1]
	assert.Empty(t, second.GUID)
	assert.Equal(t, "link:https://example.com/b", second.IdentityKey())
	assert.Equal(t, "<em>described</em>", second.Content, "content falls back to the description")
	assert.Nil(t, second.PublishedAt)
}

func TestParseAtom(t *testing.T) {
	fetcher := newTestEnv(t).fetcher

	parsed, err := fetcher.Parse(strings.NewReader(atomFeed))
	require.NoError(t, err)

	assert.Equal(t, "Atom Example", parsed.Title)
	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, "urn:uuid:entry-1", parsed.Entries[0].GUID)
	assert.Equal(t, "https://atom.example.com/1", parsed.Entries[0].Link)
	assert.Equal(t, "Ada", parsed.Entries[0].Author)
	assert.Equal(t, "Short", parsed.Entries[0].Content)
	require.NotNil(t, parsed.Entries[0].PublishedAt)
}

func TestParseMalformed(t *testing.T) {
	fetcher := newTestEnv(t).fetcher

	_, err := fetcher.Parse(strings.NewReader("this is not a feed"))
	assert.Error(t, err)
}

func TestFetchOneOverHTTP(t *testing.T) {
	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.UserAgent())
		switch r.URL.Path {
		case "/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(threeItemFeed))
		case "/slow.xml":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(threeItemFeed))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	env := newTestEnv(t)
	ctx := context.Background()

	parsed, err := env.fetcher.FetchOne(ctx, models.Feed{ID: 1, URL: server.URL + "/feed.xml"})
	require.NoError(t, err)
	assert.Len(t, parsed.Entries, 3)
	assert.Equal(t, "feedreader-test/1.0", userAgent.Load())

	_, err = env.fetcher.FetchOne(ctx, models.Feed{ID: 2, URL: server.URL + "/missing.xml"})
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.EqualValues(t, 2, fetchErr.FeedID)
	assert.Contains(t, fetchErr.Error(), "404")

	env.fetcher.config.Timeout = 50 * time.Millisecond
	_, err = env.fetcher.FetchOne(ctx, models.Feed{ID: 3, URL: server.URL + "/slow.xml"})
	require.True(t, errors.As(err, &fetchErr), "timeouts surface as fetch errors")
	assert.EqualValues(t, 3, fetchErr.FeedID)
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	env.serve(map[string]fixture{
		"https://good.example.com/feed.xml": {status: http.StatusOK, body: threeItemFeed},
		"https://bad.example.com/feed.xml":  {status: http.StatusInternalServerError},
		"https://junk.example.com/feed.xml": {status: http.StatusOK, body: "<html>nope</html>"},
	})

	feeds := []models.Feed{
		{ID: 1, URL: "https://good.example.com/feed.xml"},
		{ID: 2, URL: "https://bad.example.com/feed.xml"},
		{ID: 3, URL: "https://junk.example.com/feed.xml"},
		{ID: 4, URL: "https://down.example.com/feed.xml"},
	}

	summary := env.fetcher.FetchAll(context.Background(), feeds,
		func(ctx context.Context, feed models.Feed, parsed *models.ParsedFeed, err error) models.FeedResult {
			result := models.FeedResult{FeedID: feed.ID, URL: feed.URL}
			if err != nil {
				result.Error = err.Error()
				return result
			}
			result.Inserted = len(parsed.Entries)
			return result
		})

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 3, summary.Failed)
	assert.Equal(t, 3, summary.Inserted)
	require.Len(t, summary.Results, 4)
	assert.EqualValues(t, 1, summary.Results[0].FeedID)
	assert.Empty(t, summary.Results[0].Error)
}

func TestHostRateLimiterSpacesRequests(t *testing.T) {
	limiter := NewHostRateLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.WaitForHost(ctx, "https://example.com/a"))
	require.NoError(t, limiter.WaitForHost(ctx, "https://other.example.com/a"))
	assert.Less(t, time.Since(start), 40*time.Millisecond, "different hosts do not wait on each other")

	require.NoError(t, limiter.WaitForHost(ctx, "https://example.com/b"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	assert.Error(t, limiter.WaitForHost(ctx, "/relative"))
}
