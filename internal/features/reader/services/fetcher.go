package services

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/metrics"
	"feedreader/internal/features/reader/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

// maxFeedBytes caps the size of a feed document
const maxFeedBytes = 10 << 20

// FeedHandler consumes the outcome of fetching one feed. parsed is nil when
// err is set.
type FeedHandler func(ctx context.Context, feed models.Feed, parsed *models.ParsedFeed, err error) models.FeedResult

// FetcherService handles feed fetching and parsing
type FetcherService struct {
	client  *http.Client
	logger  *core.Logger
	config  *models.FetcherConfig
	limiter *HostRateLimiter
	content *bluemonday.Policy
	text    *bluemonday.Policy
}

// NewFetcherService creates a new fetcher service
func NewFetcherService(logger *core.Logger, config *models.FetcherConfig) *FetcherService {
	client := &http.Client{
		Timeout: config.Timeout,
	}

	var limiter *HostRateLimiter
	if config.HostInterval > 0 {
		limiter = NewHostRateLimiter(config.HostInterval)
	}

	return &FetcherService{
		client:  client,
		logger:  logger,
		config:  config,
		limiter: limiter,
		content: bluemonday.UGCPolicy(),
		text:    bluemonday.StrictPolicy(),
	}
}

// FetchOne retrieves and parses a single feed. Failures are returned as *FetchError.
func (f *FetcherService) FetchOne(ctx context.Context, feed models.Feed) (*models.ParsedFeed, error) {
	start := time.Now()

	parsed, err := f.fetch(ctx, feed.URL)
	if err != nil {
		metrics.RecordFetch("failure", time.Since(start).Seconds())
		return nil, &FetchError{FeedID: feed.ID, URL: feed.URL, Err: err}
	}

	metrics.RecordFetch("success", time.Since(start).Seconds())
	f.logger.Debug("Fetched feed", "feed_id", feed.ID, "url", feed.URL, "entries", len(parsed.Entries))
	return parsed, nil
}

func (f *FetcherService) fetch(ctx context.Context, feedURL string) (*models.ParsedFeed, error) {
	if f.limiter != nil {
		if err := f.limiter.WaitForHost(ctx, feedURL); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	return f.Parse(io.LimitReader(resp.Body, maxFeedBytes))
}

// Parse converts an RSS, Atom or JSON feed document into candidate entries.
// Entries with neither guid nor link are dropped.
func (f *FetcherService) Parse(r io.Reader) (*models.ParsedFeed, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	parsed := &models.ParsedFeed{
		Title:   f.plainText(feed.Title),
		Link:    strings.TrimSpace(feed.Link),
		Entries: make([]models.CandidateEntry, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		entry, ok := f.candidate(item)
		if !ok {
			continue
		}
		parsed.Entries = append(parsed.Entries, entry)
	}

	if dropped := len(feed.Items) - len(parsed.Entries); dropped > 0 {
		f.logger.Debug("Dropped unidentifiable entries", "count", dropped)
	}

	return parsed, nil
}

func (f *FetcherService) candidate(item *gofeed.Item) (models.CandidateEntry, bool) {
	if item == nil {
		return models.CandidateEntry{}, false
	}

	guid := strings.TrimSpace(item.GUID)
	link := strings.TrimSpace(item.Link)
	if guid == "" && link == "" {
		return models.CandidateEntry{}, false
	}

	content := item.Content
	if strings.TrimSpace(content) == "" {
		content = item.Description
	}

	entry := models.CandidateEntry{
		GUID:    guid,
		Link:    link,
		Title:   f.plainText(item.Title),
		Content: strings.TrimSpace(f.content.Sanitize(content)),
	}

	if item.Author != nil {
		entry.Author = f.plainText(item.Author.Name)
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		entry.Author = f.plainText(item.Authors[0].Name)
	}

	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}
	if published != nil {
		t := published.UTC()
		entry.PublishedAt = &t
	}

	return entry, true
}

// plainText strips markup, leaving readable text
func (f *FetcherService) plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(f.text.Sanitize(s)))
}

// FetchAll fetches feeds in parallel, bounded by MaxConcurrentFetches, and
// hands each outcome to handle. One feed failing never affects the others.
func (f *FetcherService) FetchAll(ctx context.Context, feeds []models.Feed, handle FeedHandler) models.FetchSummary {
	start := time.Now()
	results := make([]models.FeedResult, len(feeds))

	limit := f.config.MaxConcurrentFetches
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, feed := range feeds {
		i, feed := i, feed
		g.Go(func() error {
			parsed, err := f.FetchOne(ctx, feed)
			results[i] = handle(ctx, feed, parsed, err)
			return nil
		})
	}
	_ = g.Wait()

	summary := models.FetchSummary{
		Total:    len(feeds),
		Duration: time.Since(start).Round(time.Millisecond).String(),
		Results:  results,
	}
	for _, result := range results {
		if result.Error != "" {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
		summary.Inserted += result.Inserted
		summary.Duplicates += result.Skipped
	}

	return summary
}
